package ride

import "context"

// DraftRepository persists the reload-surviving subset of a device's booking.
type DraftRepository interface {
	// Load returns the saved draft for deviceID, or found=false.
	Load(ctx context.Context, deviceID string) (draft Draft, found bool, err error)

	// Save upserts the draft for deviceID.
	Save(ctx context.Context, deviceID string, draft Draft) error

	// Delete removes any saved draft for deviceID.
	Delete(ctx context.Context, deviceID string) error
}
