package model

// Member is the representation of a member in the responses of the REST API. Next to the
// stored fields it carries the values derived from the due date as of the time of the request.
// Dates are formatted as YYYY-MM-DD; unset dates are empty strings.
type Member struct {
	Id              int64  `json:"id"`
	Name            string `json:"name"`
	Age             *int   `json:"age,omitempty"`
	Contact         string `json:"contact"`
	Email           string `json:"email,omitempty"`
	Address         string `json:"address,omitempty"`
	MembershipType  string `json:"membershipType"`
	FeeAmount       string `json:"feeAmount"`
	FeePaid         bool   `json:"feePaid"`
	JoinDate        string `json:"joinDate"`
	LastPaymentDate string `json:"lastPaymentDate"`
	DueDate         string `json:"dueDate"`
	DaysUntilDue    *int   `json:"daysUntilDue,omitempty"`
	Status          string `json:"status"`
}

// Reminder is the acknowledgement returned after a payment reminder was sent.
type Reminder struct {
	Id           int64  `json:"id"`
	Name         string `json:"name"`
	Contact      string `json:"contact"`
	DaysUntilDue *int   `json:"daysUntilDue,omitempty"`
	Message      string `json:"message"`
	Text         string `json:"text"`
}

// Stats are the counters over the whole member collection.
type Stats struct {
	Total   int `json:"total"`
	Paid    int `json:"paid"`
	Unpaid  int `json:"unpaid"`
	Overdue int `json:"overdue"`
}
