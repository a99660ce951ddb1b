package usecase

import "github.com/xavierca1/npi-leads/internal/normalizer"

type SyncInput struct {
	TaxonomyDescription string `json:"taxonomy_description,omitempty"`
	State               string `json:"state,omitempty"`
	City                string `json:"city,omitempty"`
	LastName            string `json:"last_name,omitempty"`
	EnumerationType     string `json:"enumeration_type,omitempty"`
	Limit               int    `json:"limit,omitempty"`
	MaxRecords          int    `json:"max_records,omitempty"`
	Resume              bool   `json:"resume"`
}

type SyncOutput struct {
	Success         bool    `json:"success"`
	Added           int     `json:"added"`
	Updated         int     `json:"updated"`
	Total           int     `json:"total"`
	LeadsCreated    int     `json:"leadsCreated"`
	TotalAvailable  int     `json:"totalAvailable"`
	LastFetchedSkip int     `json:"lastFetchedSkip"`
	IsComplete      bool    `json:"isComplete"`
	Progress        float64 `json:"progress"`
	ProgressMessage string  `json:"progressMessage"`
	SearchKey       string  `json:"searchKey"`
	FailedPages     []int   `json:"failedPages,omitempty"`
	Error           string  `json:"error,omitempty"`
}

type UploadInput struct {
	FileName string
	Data     []byte
}

type UploadOutput struct {
	Success        bool     `json:"success"`
	Message        string   `json:"message"`
	Added          int      `json:"added"`
	Updated        int      `json:"updated"`
	TotalProcessed int      `json:"totalProcessed"`
	Duplicates     int      `json:"duplicates"`
	ArchiveKey     string   `json:"archiveKey,omitempty"`
	Errors         []string `json:"errors,omitempty"`
}

type RowsInput struct {
	Rows []normalizer.RequiredRow `json:"rows"`
}

type RowsOutput struct {
	Success bool `json:"success"`
	Added   int  `json:"added"`
	Updated int  `json:"updated"`
	Total   int  `json:"total"`
}

type ProvisionLeadsInput struct {
	ProviderIDs []string `json:"providerIds,omitempty"`
	SaveAll     bool     `json:"saveAll"`
}

type ProvisionLeadsOutput struct {
	Success    bool   `json:"success"`
	Saved      int    `json:"saved"`
	Duplicates int    `json:"duplicates"`
	Total      int    `json:"total"`
	Message    string `json:"message,omitempty"`
}
