// Package itinerary defines the travel itinerary schema returned to clients and
// the request parameters that drive a planning run.
//
// The JSON field names of Attraction, DailyPlan and TravelItinerary are the
// external contract of the web endpoint and must stay stable.
package itinerary
