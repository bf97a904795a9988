package stl311

import "encoding/json"

// RawRequest is one flat record as returned by the upstream requests.json
// endpoint. Numeric fields arrive as either strings or numbers depending on
// the upstream serializer, hence json.Number throughout.
type RawRequest struct {
	ServiceRequestID json.Number `json:"SERVICE_REQUEST_ID"`
	Status           string      `json:"STATUS"`
	Priority         string      `json:"PRIORITY"`

	ServiceName string      `json:"SERVICE_NAME"`
	ServiceCode json.Number `json:"SERVICE_CODE"`

	Description       string `json:"DESCRIPTION"`
	AgencyResponsible string `json:"AGENCY_RESPONSIBLE"`
	StatusNotes       string `json:"STATUS_NOTES"`
	ServiceNotice     string `json:"SERVICE_NOTICE"`
	MediaURL          string `json:"MEDIA_URL"`

	Address      string      `json:"ADDRESS"`
	Zipcode      json.Number `json:"ZIPCODE"`
	Neighborhood string      `json:"NEIGHBORHOOD"`
	Ward         json.Number `json:"WARD"`

	RequestedDatetime string `json:"REQUESTED_DATETIME"`
	UpdatedDatetime   string `json:"UPDATED_DATETIME"`
	ExpectedDatetime  string `json:"EXPECTED_DATETIME"`
	DateCancelled     string `json:"DATE_CANCELLED"`
	DateInvDone       string `json:"DATE_INV_DONE"`

	// EPSG:3857 meters. SRX/SRY are authoritative; LAT/LONG is a legacy
	// fallback carrying the same projection.
	SRX  json.Number `json:"SRX"`
	SRY  json.Number `json:"SRY"`
	Lat  json.Number `json:"LAT"`
	Long json.Number `json:"LONG"`
}

// PageQuery addresses one page of the upstream window.
type PageQuery struct {
	StartDate string
	EndDate   string
	Status    string
	Page      int
	PageSize  int
}

// envelope is the wrapped response form; the upstream also returns a bare
// array, which FetchPage handles first.
type envelope struct {
	ServiceRequests []RawRequest `json:"service_requests"`
}
