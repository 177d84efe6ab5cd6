package models

import (
	"time"
)

// Source identifies the booking platform a trip was observed on
type Source string

const (
	SourceFRN        Source = "FRN"
	SourceFareHarbor Source = "FAREHARBOR"
	SourceXola       Source = "XOLA"
	SourceVirtual    Source = "VIRTUAL"
	SourceOther      Source = "OTHER"
)

// FareType is a passenger category
type FareType string

const (
	FareAdult    FareType = "ADULT"
	FareJunior   FareType = "JUNIOR"
	FareSenior   FareType = "SENIOR"
	FareMilitary FareType = "MILITARY"
	FareStudent  FareType = "STUDENT"
	FareOther    FareType = "OTHER"
)

// Trip status values
const (
	StatusOpen      = "OPEN"
	StatusFull      = "FULL"
	StatusWaitlist  = "WAITLIST"
	StatusChartered = "CHARTERED"
)

// TargetState is the per-run state of a scrape target
type TargetState string

const (
	TargetPending   TargetState = "PENDING"
	TargetRunning   TargetState = "RUNNING"
	TargetSucceeded TargetState = "SUCCEEDED"
	TargetFailed    TargetState = "FAILED"
)

// Timezone every sailing is expressed in
const Timezone = "America/Los_Angeles"

// Landing is a dock or marina listing one or more vessels
type Landing struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Slug    string `json:"slug"`
	Website string `json:"website,omitempty"`
}

// Vessel is a boat associated with one or more landings
type Vessel struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	PrimaryWebsite string `json:"primary_website,omitempty"`
}

// ScrapeTarget is a configured landing URL to poll
type ScrapeTarget struct {
	ID            string     `json:"id"`
	LandingID     string     `json:"landing_id"`
	VesselID      *string    `json:"vessel_id,omitempty"`
	URL           string     `json:"url"`
	Domain        string     `json:"domain"`
	Platform      string     `json:"platform"`
	Active        bool       `json:"active"`
	LastRunAt     *time.Time `json:"last_run_at,omitempty"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastStatus    string     `json:"last_status,omitempty"`
}

// FareTier is a priced passenger category on a trip
type FareTier struct {
	Type       FareType `json:"type"`
	Label      string   `json:"label"`
	PriceCents int64    `json:"price_cents"`
	Currency   string   `json:"currency"`
	MinAge     *int     `json:"min_age,omitempty"`
	MaxAge     *int     `json:"max_age,omitempty"`
	Conditions string   `json:"conditions,omitempty"`
}

// TripPromotion is a promotional offer attached to a trip
type TripPromotion struct {
	Slug        string `json:"slug"`
	Summary     string `json:"summary"`
	Details     string `json:"details,omitempty"`
	AppliesWhen string `json:"applies_when,omitempty"`
}

// Trip is one canonical sailing keyed by (Source, SourceTripID)
type Trip struct {
	ID                string          `json:"id"`
	Source            Source          `json:"source"`
	SourceTripID      string          `json:"source_trip_id"`
	SourceURL         string          `json:"source_url"`
	LandingID         string          `json:"landing_id"`
	VesselID          *string         `json:"vessel_id,omitempty"`
	Title             string          `json:"title"`
	Notes             string          `json:"notes,omitempty"`
	PassportReq       bool            `json:"passport_req"`
	MealsIncl         bool            `json:"meals_incl"`
	PermitsIncl       bool            `json:"permits_incl"`
	DepartLocal       time.Time       `json:"depart_local"`
	ReturnLocal       *time.Time      `json:"return_local,omitempty"`
	Timezone          string          `json:"timezone"`
	Load              *int            `json:"load,omitempty"`
	Spots             *int            `json:"spots,omitempty"`
	Status            string          `json:"status"`
	PriceIncludesFees bool            `json:"price_includes_fees"`
	ServiceFeePct     *float64        `json:"service_fee_pct,omitempty"`
	FareTiers         []FareTier      `json:"fare_tiers"`
	Promotions        []TripPromotion `json:"promotions,omitempty"`
	LastScrapedAt     time.Time       `json:"last_scraped_at"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Key is the natural identity of a trip
func (t *Trip) Key() string {
	return string(t.Source) + "|" + t.SourceTripID
}

// Failure is one reported problem in a run
type Failure struct {
	TargetID string `json:"target_id"`
	URL      string `json:"url"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}

// TargetOutcome is the final state of one target in a run
type TargetOutcome struct {
	TargetID      string      `json:"target_id"`
	URL           string      `json:"url"`
	Platform      string      `json:"platform"`
	State         TargetState `json:"state"`
	Listings      int         `json:"listings"`
	TripsUpserted int         `json:"trips_upserted"`
	Duration      string      `json:"duration"`
}

// RunReport summarizes one ingestion pass
type RunReport struct {
	StartedAt        time.Time       `json:"started_at"`
	FinishedAt       time.Time       `json:"finished_at"`
	TargetsProcessed int             `json:"targets_processed"`
	TargetsSucceeded int             `json:"targets_succeeded"`
	TripsUpserted    int             `json:"trips_upserted"`
	TripsPruned      int64           `json:"trips_pruned"`
	Outcomes         []TargetOutcome `json:"outcomes"`
	Failures         []Failure       `json:"failures"`
}
