// README: Opaque identifiers for sessions and bookings.
package types

import "github.com/google/uuid"

type ID string

func NewID() ID {
    return ID(uuid.NewString())
}
