// config/security_config.go
package config

type SecurityLevel int

const (
	SecurityPublic SecurityLevel = iota // No authentication
	SecurityAccess                      // Any authenticated actor
	SecurityAdmin                       // Admin or system actor
)

// EndpointSecurityConfig maps "METHOD /route/template" to the required security level
var EndpointSecurityConfig = map[string]SecurityLevel{
	"GET /healthz": SecurityPublic,

	// Charge ledger
	"GET /api/v1/bookings/{bookingID}/charges":                       SecurityAccess,
	"POST /api/v1/bookings/{bookingID}/charges":                      SecurityAccess,
	"POST /api/v1/bookings/{bookingID}/inspections/return/completed": SecurityAdmin,
	"PATCH /api/v1/charges/{chargeID}/status":                        SecurityAdmin,
	"POST /api/v1/charges/{chargeID}/deduct":                         SecurityAdmin,
	"GET /api/v1/charge-types":                                       SecurityAdmin,
	"POST /api/v1/charge-types":                                      SecurityAdmin,
	"PUT /api/v1/charge-types/{code}":                                SecurityAdmin,
	"DELETE /api/v1/charge-types/{code}":                             SecurityAdmin,

	// Deposit refunds
	"POST /api/v1/bookings/{bookingID}/refund": SecurityAdmin,
	"POST /api/v1/refunds/{refundID}/process":  SecurityAdmin,
	"POST /api/v1/refunds/{refundID}/cancel":   SecurityAdmin,
	"GET /api/v1/refunds/pending":              SecurityAdmin,
	"GET /api/v1/refunds/overdue":              SecurityAdmin,
	"GET /api/v1/refunds/{refundID}/audit":     SecurityAdmin,

	// Owner balance and payouts
	"GET /api/v1/owners/{ownerID}/balance":         SecurityAccess,
	"GET /api/v1/owners/{ownerID}/payout-settings": SecurityAccess,
	"PUT /api/v1/owners/{ownerID}/payout-settings": SecurityAccess,
	"POST /api/v1/owners/{ownerID}/withdrawals":    SecurityAccess,
	"POST /api/v1/withdrawals/{id}/complete":       SecurityAdmin,
	"POST /api/v1/withdrawals/{id}/fail":           SecurityAdmin,
	"GET /api/v1/payouts/due":                      SecurityAdmin,
	"POST /api/v1/payouts/process":                 SecurityAdmin,
	"POST /api/v1/payouts/{id}/complete":           SecurityAdmin,
	"POST /api/v1/payouts/{id}/fail":               SecurityAdmin,

	// Notifications
	"GET /api/v1/notifications":            SecurityAccess,
	"POST /api/v1/notifications/{id}/read": SecurityAccess,
}

// GetSecurityLevel returns the security level for a given route
func GetSecurityLevel(route string) SecurityLevel {
	if level, exists := EndpointSecurityConfig[route]; exists {
		return level
	}
	// Default to highest security for unknown endpoints
	return SecurityAdmin
}
