// Package domain models NYC 311 service requests and the neighborhood
// statistics derived from them.
//
// # Data Source
//
// Complaints come from the NYC Open Data "311 Service Requests" dataset
// (Socrata resource erm2-nwe9). Each row carries a unique_key, a free-text
// complaint_type chosen by the 311 operator, an optional descriptor, and a
// created_date in New York local time without an offset.
//
// # NYC 311 Data Conventions
//
// Timestamps:
//
//	"2025-01-15T14:30:00.000"  floating local time in America/New_York.
//	Stored in UTC. Calendar days are always computed in the configured
//	timezone, so a complaint filed at 23:30 local belongs to that local day.
//
// Coordinates:
//
//	latitude/longitude arrive as strings and are frequently blank for
//	complaints filed against an intersection or a phone call with no address.
//	Blank coordinates leave the complaint without a neighborhood.
//
// Complaint types:
//
//	Hundreds of distinct operator labels ("Noise - Residential", "HEAT/HOT WATER",
//	"Rodent", "Blocked Driveway"). [Classify] folds them into a fixed set of
//	nine categories with an ordered keyword table; see categories.go.
//
// # Derived Statistics
//
// Daily counts per (neighborhood, date, category) are rolled up into
// per-timeframe summaries (today, week, month, rolling90). Each neighborhood is
// ranked by total volume and assigned a 0-100 chaos score from its month
// summary; see [ChaosScore].
package domain
