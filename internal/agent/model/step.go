package model

// FileSummary describes an attachment after the media pre-step.
type FileSummary struct {
	SummaryText string `json:"summary_text"`
	FileType    string `json:"file_type"`
}

// FreightResult is the outcome of a freight calculation. Cost is nil when
// the tenant policy is missing, malformed, or has no matching tier.
type FreightResult struct {
	DistanceKM      float64  `json:"distance_km" bson:"distance_km"`
	DurationMinutes float64  `json:"duration_minutes" bson:"duration_minutes"`
	Cost            *float64 `json:"cost" bson:"cost,omitempty"`
}

// Suggestion is an add-on offered for the last product added to the cart.
type Suggestion struct {
	Name            string  `json:"nome_opcional"`
	AdditionalPrice float64 `json:"preco_adicional"`
}

// ApplicablePromotion is an active promotion whose condition holds.
type ApplicablePromotion struct {
	Name        string `json:"nome"`
	Description string `json:"descricao"`
	ActionJSON  string `json:"acao,omitempty"`

	// Subtotal and DiscountedTotal are set when the action changes the order price.
	Subtotal        float64  `json:"subtotal_pedido,omitempty"`
	DiscountedTotal *float64 `json:"total_com_desconto,omitempty"`
}

// StepContext is the mutable record threaded through one pipeline run.
type StepContext struct {
	SessionID string
	UserID    string
	TenantID  string
	MessageID string

	Text      string
	File      []byte
	MimeType  string
	Latitude  *float64
	Longitude *float64

	Personality string
	StoreName   string

	Order  *OrderState
	Intent *IntentAnalysis

	Branch       string
	PendingTasks []Task

	SuggestionsInfo []Suggestion
	PromotionsInfo  []ApplicablePromotion
	FreightInfo     *FreightResult

	Draft AIResponse

	// Halt ends the run after the media pre-step with Draft as the reply.
	Halt bool
}

// HasCoordinates reports whether the client shared a location.
func (s *StepContext) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// Result copies the draft into a standalone response.
func (s *StepContext) Result() *AIResponse {
	r := s.Draft
	return &r
}
