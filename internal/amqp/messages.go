package amqp

// ReportRequest asks the worker to build and deliver one monthly report.
type ReportRequest struct {
	UserID int64 `json:"user_id"`
	Year   int   `json:"year"`
	Month  int   `json:"month"`
}
