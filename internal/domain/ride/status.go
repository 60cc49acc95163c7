package ride

// Status flags carried in every operator API response envelope.
const (
	FlagSessionExpired   = 101
	FlagSuccess          = 143
	FlagOutOfServiceArea = 144
)
