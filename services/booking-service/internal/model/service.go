package model

// Service timing parameters are minutes. A booking consumes one full cycle:
// buffer before, the customer-facing duration, then buffer after.
type Service struct {
	ID            string
	ProviderID    string
	Name          string
	DurationMins  int
	BufBeforeMins int
	BufAfterMins  int
	PriceCents    int
	Active        bool
}

// CycleMins is the stride between candidate slot start times.
func (s Service) CycleMins() int {
	return s.DurationMins + s.BufBeforeMins + s.BufAfterMins
}
