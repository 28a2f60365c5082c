package transfer

// Metadata is one status update delivered to a session's subscriber.
type Metadata struct {
	Status           Status  `json:"status"`
	Progress         float64 `json:"progress"`
	TransferredBytes int64   `json:"transferredBytes"`
	TotalBytes       int64   `json:"totalBytes"`
	Token            string  `json:"token,omitempty"`
}

func NewMetadata(status Status) Metadata {
	return Metadata{Status: status}
}

// WithProgress sets the byte counters and derives the percentage.
func (m Metadata) WithProgress(transferred, total int64) Metadata {
	m.TransferredBytes = transferred
	m.TotalBytes = total
	if total > 0 {
		m.Progress = float64(transferred) * 100 / float64(total)
		if m.Progress > 100 {
			m.Progress = 100
		}
	}
	return m
}

func (m Metadata) IsFinal() bool {
	return m.Status.IsFinal()
}
