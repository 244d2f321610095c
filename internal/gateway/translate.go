package gateway

import "github.com/dufanyin/optionrunner/internal/domain"

// venueStatus is the concrete vendor order-status vocabulary this mock
// adapter speaks.
type venueStatus string

const (
	venueAPIPending      venueStatus = "ApiPending"
	venuePendingSubmit   venueStatus = "PendingSubmit"
	venuePreSubmitted    venueStatus = "PreSubmitted"
	venueSubmitted       venueStatus = "Submitted"
	venueAPICancelled    venueStatus = "ApiCancelled"
	venuePendingCancel   venueStatus = "PendingCancel"
	venueCancelled       venueStatus = "Cancelled"
	venueFilled          venueStatus = "Filled"
	venueInactive        venueStatus = "Inactive"
	venuePartiallyFilled venueStatus = "PartiallyFilled"
)

// statusVenueToCore mirrors STATUS_IB2VT.
var statusVenueToCore = map[venueStatus]domain.Status{
	venueAPIPending:      domain.StatusSubmitting,
	venuePendingSubmit:   domain.StatusSubmitting,
	venuePreSubmitted:    domain.StatusSubmitting,
	venueSubmitted:       domain.StatusNotTraded,
	venueAPICancelled:    domain.StatusCancelled,
	venuePendingCancel:   domain.StatusSubmitting,
	venueCancelled:       domain.StatusCancelled,
	venueFilled:          domain.StatusAllTraded,
	venueInactive:        domain.StatusRejected,
	venuePartiallyFilled: domain.StatusPartTraded,
}

// directionCoreToVenue mirrors DIRECTION_VT2IB.
var directionCoreToVenue = map[domain.Direction]string{
	domain.DirectionLong:  "BUY",
	domain.DirectionShort: "SELL",
}

// directionVenueToCore mirrors DIRECTION_IB2VT, including the execution-side
// synonyms "BOT"/"SLD" the venue uses for fill reports.
var directionVenueToCore = map[string]domain.Direction{
	"BUY":  domain.DirectionLong,
	"SELL": domain.DirectionShort,
	"BOT":  domain.DirectionLong,
	"SLD":  domain.DirectionShort,
}

// orderTypeCoreToVenue mirrors ORDERTYPE_VT2IB.
var orderTypeCoreToVenue = map[domain.OrderType]string{
	domain.OrderTypeLimit:  "LMT",
	domain.OrderTypeMarket: "MKT",
}

// orderTypeVenueToCore mirrors ORDERTYPE_IB2VT.
var orderTypeVenueToCore = map[string]domain.OrderType{
	"LMT": domain.OrderTypeLimit,
	"MKT": domain.OrderTypeMarket,
}

// harmlessVenueCodes are vendor error codes that are purely informational
// and must never be logged as errors.
var harmlessVenueCodes = map[int]bool{
	202:  true, // order canceled (success message)
	2104: true,
	2106: true,
	2158: true,
}

// isHarmlessVenueCode reports whether code should be suppressed from error
// logging.
func isHarmlessVenueCode(code int) bool {
	return harmlessVenueCodes[code]
}
