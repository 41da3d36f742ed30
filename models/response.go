package models

// Envelope is the body shape of every API response.
type Envelope struct {
	Success    bool         `json:"success"`
	Data       any          `json:"data,omitempty"`
	Errors     []FieldError `json:"errors,omitempty"`
	Message    string       `json:"message,omitempty"`
	Pagination *Pagination  `json:"pagination,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, limit, total int) *Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return &Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}

// UserExport is the personal data export of one account.
type UserExport struct {
	User          User           `json:"user"`
	Categories    []Category     `json:"categories"`
	Expenses      []Expense      `json:"expenses"`
	Budgets       []Budget       `json:"budgets"`
	Achievements  []Achievement  `json:"achievements"`
	Notifications []Notification `json:"notifications"`
	ExportedAt    string         `json:"exported_at"`
}
