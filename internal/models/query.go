package models

// QueryParams is the normalized filter envelope every report handler
// builds from its request body. A single instance drives both the
// interactive query and the deferred export of the same report, so the
// WHERE-clause derivation stays identical between the two paths.
type QueryParams struct {
	StartTime string `json:"startTime,omitempty"`
	EndTime   string `json:"endTime,omitempty"`

	// Comma-separated store codes. Chinese commas and surrounding
	// whitespace are accepted and normalized before validation.
	StationCodes string `json:"stationCodes,omitempty"`

	Mobile   string `json:"mobile,omitempty"`
	Statuses []int  `json:"statuses,omitempty"`

	OrderNumber string `json:"orderNumber,omitempty"`
	CouponIDs   string `json:"couponIds,omitempty"`
	ActivityID  string `json:"activityId,omitempty"`
	BarCode     string `json:"barCode,omitempty"`
	PartyCode   string `json:"partyCode,omitempty"`

	// Coupon reports filter on two independent date ranges.
	ReceiveStartTime string `json:"receiveStartTime,omitempty"`
	ReceiveEndTime   string `json:"receiveEndTime,omitempty"`
	UseStartTime     string `json:"useStartTime,omitempty"`
	UseEndTime       string `json:"useEndTime,omitempty"`

	// Mall-user report keys on a single day.
	Date string `json:"date,omitempty"`

	Page     int `json:"page,omitempty"`
	PageSize int `json:"pageSize,omitempty"`
}

// Sanitized returns a copy safe for logging: customer-identifying
// fields are replaced with a fixed redaction marker.
func (p QueryParams) Sanitized() QueryParams {
	s := p
	if s.Mobile != "" {
		s.Mobile = "***"
	}
	return s
}

// QueryResult is the uniform response every connector produces,
// regardless of backend.
type QueryResult struct {
	Success      bool                     `json:"success"`
	Data         []map[string]interface{} `json:"data,omitempty"`
	Columns      []string                 `json:"columns,omitempty"`
	Error        string                   `json:"error,omitempty"`
	QueryTime    int64                    `json:"queryTime"`
	AffectedRows int64                    `json:"affectedRows,omitempty"`

	// Set when a failover secondary served the request.
	Warning string `json:"warning,omitempty"`
}
