// Package identity reads the user projection consumed by the group core:
// uuid, trust tier and display fields.
//
// Profiles are owned elsewhere; this package never writes users.
package identity
