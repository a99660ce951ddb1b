package mail

import "time"

type SyncReportData struct {
	SearchKey      string
	Added          int
	Updated        int
	LeadsCreated   int
	TotalAvailable int
	FailedPages    []int
	FinishedAt     time.Time
}

type EmailSender struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
	To       []string

	dialer dialer
}
