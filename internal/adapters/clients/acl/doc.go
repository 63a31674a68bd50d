// Package acl is the anti-corruption layer between the quote store and the
// remote collection it syncs with.
//
// The remote speaks its own vocabulary: JSONPlaceholder posts carry a userId,
// an id, a title and a body, and report failures as HTTP statuses or transport
// errors. Nothing of that crosses this package. Adapters here:
//
//   - decode remote DTOs (unexported) and translate them into [domain.Quote]
//   - map statuses and client failures to domain errors via [MapHTTPError]
//   - satisfy the ports the app layer depends on ([ports.RemoteQuotes],
//     [ports.HealthChecker])
//
// Error mapping:
//
//	404             -> domain.ErrNotFound
//	409             -> domain.ErrConflict
//	400, 422, 4xx   -> domain.ErrValidation
//	401, 403        -> domain.ErrForbidden
//	429, 5xx, net   -> domain.ErrUnavailable
//
// [clients.ErrCircuitOpen] and [clients.ErrMaxRetriesExceeded] both become
// domain.ErrUnavailable with the operation named in the reason.
package acl
