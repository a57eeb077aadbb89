package affection

// Status is the phase reported while a classifier is being prepared.
type Status string

const (
	StatusInitializing Status = "initializing"
	StatusDownloading  Status = "downloading"
	StatusQuantizing   Status = "quantizing"
	StatusLoading      Status = "loading"
	StatusDone         Status = "done"
	StatusError        Status = "error"
	StatusPending      Status = "pending"
)

// Progress is a model preparation event.
type Progress struct {
	Status   Status  `json:"status"`
	Name     string  `json:"name,omitempty"`
	File     string  `json:"file,omitempty"`
	Progress float64 `json:"progress,omitempty"`
	Loaded   int64   `json:"loaded,omitempty"`
	Total    int64   `json:"total,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// ProgressFunc receives model preparation events. It may be nil.
type ProgressFunc func(Progress)

func (f ProgressFunc) emit(p Progress) {
	if f != nil {
		f(p)
	}
}

// BatchProgressFunc is called after each classification batch with the number of messages
// processed so far and the total queued.
type BatchProgressFunc func(processed, total int)
