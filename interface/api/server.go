package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"sort"
	"strconv"
	"time"

	"dashboard/domain"
	"dashboard/domain/util"
	"dashboard/usecase"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Dashboard is what the API serves from; *usecase.Engine implements it.
type Dashboard interface {
	Rate(ctx context.Context, block domain.BlockReference) (domain.ExchangeRate, error)
	Holdings(ctx context.Context, address domain.Address, block domain.BlockReference, opts usecase.AggregateOptions) (domain.AggregateHoldings, error)
	Yield(ctx context.Context, protocol domain.ProtocolID) (domain.CompositeYield, error)
	UnstakeQuote(ctx context.Context, amount domain.FixedPoint, taker domain.Address) (domain.UnstakeQuote, error)
	Refresh(ctx context.Context, address domain.Address, block domain.BlockReference) (usecase.Snapshot, error)
	Subscribe(address domain.Address, block domain.BlockReference) (<-chan usecase.Snapshot, func())
	Protocols() []domain.ProtocolID
}

type Server struct {
	dashboard      Dashboard
	router         *mux.Router
	server         *http.Server
	address        string
	stakedDecimals uint8
	requestTimeout time.Duration
}

func NewServer(dashboard Dashboard, address string, stakedDecimals uint8) *Server {
	server := &Server{
		dashboard:      dashboard,
		address:        address,
		stakedDecimals: stakedDecimals,
		requestTimeout: 20 * time.Second,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()

	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/rate", s.getRate).Methods("GET")
	api.HandleFunc("/holdings/{address}", s.getHoldings).Methods("GET")
	api.HandleFunc("/yields/{protocol}", s.getYield).Methods("GET")
	api.HandleFunc("/unstake/quote", s.getUnstakeQuote).Methods("GET")
	api.HandleFunc("/refresh/{address}", s.postRefresh).Methods("POST")
	api.HandleFunc("/subscribe/{address}", s.subscribe).Methods("GET")
	api.HandleFunc("/health", s.getHealth).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})

	s.router.Use(c.Handler)
	s.router.Use(s.loggingMiddleware)
}

// Router exposes the routes so more handlers (metrics) can be mounted.
func (s *Server) Router() *mux.Router {
	return s.router
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        s.address,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	log.Printf("🔵 API server listening on %v\n", s.address)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) getRate(w http.ResponseWriter, r *http.Request) {
	block, err := domain.ParseBlockReference(r.URL.Query().Get("block"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	rate, err := s.dashboard.Rate(ctx, block)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, newRateDTO(rate, nil))
}

func (s *Server) getHoldings(w http.ResponseWriter, r *http.Request) {
	address, err := domain.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	block, err := domain.ParseBlockReference(r.URL.Query().Get("block"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	partial, _ := strconv.ParseBool(r.URL.Query().Get("partial"))

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	holdings, err := s.dashboard.Holdings(ctx, address, block, usecase.AggregateOptions{AllowPartial: partial})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, newHoldingsDTO(address, holdings))
}

func (s *Server) getYield(w http.ResponseWriter, r *http.Request) {
	protocol, err := domain.ParseProtocolID(mux.Vars(r)["protocol"])
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	yield, err := s.dashboard.Yield(ctx, protocol)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, newYieldDTO(protocol, yield))
}

func (s *Server) getUnstakeQuote(w http.ResponseWriter, r *http.Request) {
	amount, err := domain.ParseFixedPoint(r.URL.Query().Get("amount"), s.stakedDecimals)
	if err != nil {
		s.writeError(w, err)
		return
	}
	var taker domain.Address
	if raw := r.URL.Query().Get("taker"); raw != "" {
		if taker, err = domain.ParseAddress(raw); err != nil {
			s.writeError(w, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	quote, err := s.dashboard.UnstakeQuote(ctx, amount, taker)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, newUnstakeDTO(quote))
}

func (s *Server) postRefresh(w http.ResponseWriter, r *http.Request) {
	address, err := domain.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		s.writeError(w, err)
		return
	}
	block, err := domain.ParseBlockReference(r.URL.Query().Get("block"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	snapshot, err := s.dashboard.Refresh(ctx, address, block)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, newSnapshotDTO(snapshot))
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	protocols := make([]string, 0)
	for _, protocol := range s.dashboard.Protocols() {
		protocols = append(protocols, protocol.String())
	}
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"protocols": protocols,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("🔴 encoding response - %v\n", err.Error())
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		log.Printf("🔴 request failed - %v\n", err.Error())
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     err.Error(),
		"status":    status,
		"timestamp": time.Now().Unix(),
	})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrorInvalidAddress),
		errors.Is(err, domain.ErrorInvalidBlockReference),
		errors.Is(err, domain.ErrorInvalidAmount),
		errors.Is(err, domain.ErrorPrecisionLoss):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrorUnknownProtocol):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrorTransientNetwork),
		errors.Is(err, domain.ErrorQuoteUnavailable),
		errors.Is(err, domain.ErrorCancelled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%v %v %v", r.Method, r.RequestURI, time.Since(start))
	})
}

type rateDTO struct {
	Rate        float64 `json:"rate"`
	PreciseRate string  `json:"preciseRate"`
	Display     string  `json:"display"`
	Block       uint64  `json:"block"`
	Pending     bool    `json:"pending"`
	Available   bool    `json:"available"`
	Error       string  `json:"error,omitempty"`
}

func newRateDTO(rate domain.ExchangeRate, err error) rateDTO {
	dto := rateDTO{
		Rate:        rate.Rate,
		PreciseRate: rate.PreciseRate.String(),
		Display:     rate.PreciseRate.DisplayString(4),
		Block:       rate.ComputedAtBlock,
		Pending:     rate.Pending,
		Available:   !rate.Unavailable() && err == nil,
	}
	if !dto.Available {
		dto.Display = util.FormatUnavailable(err)
	}
	if err != nil {
		dto.Error = err.Error()
	}
	return dto
}

type holdingDTO struct {
	Protocol   string `json:"protocol,omitempty"`
	Staked     string `json:"staked"`
	Underlying string `json:"underlying"`
	Available  bool   `json:"available"`
	Error      string `json:"error,omitempty"`
}

func newHoldingDTO(holding domain.Holding) holdingDTO {
	dto := holdingDTO{
		Staked:     holding.StakedTokenAmount.String(),
		Underlying: holding.UnderlyingTokenAmount.String(),
		Available:  !holding.Failed(),
	}
	if holding.Source != 0 {
		dto.Protocol = holding.Source.String()
	}
	if holding.Err != nil {
		dto.Error = holding.Err.Error()
	}
	return dto
}

type holdingsDTO struct {
	Address   string       `json:"address"`
	Block     string       `json:"block"`
	Partial   bool         `json:"partial"`
	Total     holdingDTO   `json:"total"`
	Protocols []holdingDTO `json:"protocols"`
}

func newHoldingsDTO(address domain.Address, holdings domain.AggregateHoldings) holdingsDTO {
	dto := holdingsDTO{
		Address:   address.String(),
		Block:     holdings.Block.String(),
		Partial:   holdings.Partial,
		Total:     newHoldingDTO(holdings.Total),
		Protocols: make([]holdingDTO, 0, len(holdings.PerProtocol)),
	}
	ids := make([]domain.ProtocolID, 0, len(holdings.PerProtocol))
	for id := range holdings.PerProtocol {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		dto.Protocols = append(dto.Protocols, newHoldingDTO(holdings.PerProtocol[id]))
	}
	return dto
}

type yieldComponentDTO struct {
	Title         string  `json:"title"`
	Value         string  `json:"value"`
	Display       string  `json:"display"`
	Kind          string  `json:"kind"`
	Remarks       string  `json:"remarks,omitempty"`
	TotalSupplied *string `json:"totalSupplied,omitempty"`
}

type yieldDTO struct {
	Protocol      string              `json:"protocol"`
	Total         string              `json:"total"`
	Display       string              `json:"display"`
	Components    []yieldComponentDTO `json:"components"`
	TotalSupplied *string             `json:"totalSupplied"`
}

func newYieldDTO(protocol domain.ProtocolID, yield domain.CompositeYield) yieldDTO {
	dto := yieldDTO{
		Protocol:   protocol.String(),
		Total:      yield.Total.String(),
		Display:    util.FormatPercent(yield.Total),
		Components: make([]yieldComponentDTO, 0, len(yield.Components)),
	}
	if yield.TotalSupplied != nil {
		supplied := yield.TotalSupplied.String()
		dto.TotalSupplied = &supplied
	}
	for _, component := range yield.Components {
		c := yieldComponentDTO{
			Title:   component.Title,
			Value:   component.Value.String(),
			Display: util.FormatPercent(component.Value),
			Kind:    component.Kind.String(),
			Remarks: component.Remarks,
		}
		if component.TotalSupplied != nil {
			supplied := component.TotalSupplied.String()
			c.TotalSupplied = &supplied
		}
		dto.Components = append(dto.Components, c)
	}
	return dto
}

type unstakeDTO struct {
	Route         string `json:"route"`
	InputAmount   string `json:"inputAmount"`
	OutputAmount  string `json:"outputAmount"`
	EffectiveRate string `json:"effectiveRate"`
	WaitClass     string `json:"waitClass"`
	Stale         bool   `json:"stale"`
	QuotedAt      int64  `json:"quotedAt"`
}

func newUnstakeDTO(quote domain.UnstakeQuote) unstakeDTO {
	return unstakeDTO{
		Route:         quote.Route.String(),
		InputAmount:   quote.InputAmount.String(),
		OutputAmount:  quote.OutputAmount.String(),
		EffectiveRate: quote.EffectiveRate.String(),
		WaitClass:     quote.WaitClass.String(),
		Stale:         quote.Stale,
		QuotedAt:      quote.QuotedAt.Unix(),
	}
}

type snapshotDTO struct {
	Address  string      `json:"address"`
	Block    string      `json:"block"`
	Rate     rateDTO     `json:"rate"`
	Holdings holdingsDTO `json:"holdings"`
}

func newSnapshotDTO(snapshot usecase.Snapshot) snapshotDTO {
	return snapshotDTO{
		Address:  snapshot.Address.String(),
		Block:    snapshot.Block.String(),
		Rate:     newRateDTO(snapshot.Rate, snapshot.RateErr),
		Holdings: newHoldingsDTO(snapshot.Address, snapshot.Holdings),
	}
}
