package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/dhkim0428/simple-dex/pkg/venue"
)

// Server handles REST API and WebSocket connections
type Server struct {
	svc      *venue.Service
	balances *venue.BalanceCache
	router   *mux.Router
	hub      *Hub
	log      *zap.SugaredLogger
}

// NewServer creates a new API server
func NewServer(svc *venue.Service, balances *venue.BalanceCache, log *zap.SugaredLogger) *Server {
	s := &Server{
		svc:      svc,
		balances: balances,
		router:   mux.NewRouter(),
		hub:      NewHub(),
		log:      log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	// Order endpoints
	api.HandleFunc("/orders", s.handleCreateOrder).Methods("POST")
	api.HandleFunc("/orders", s.handleListOrders).Methods("GET")
	api.HandleFunc("/orders/{id}", s.handleGetOrder).Methods("GET")
	api.HandleFunc("/orders/{id}/cancel", s.handleCancelOrder).Methods("POST")

	// Balance endpoints
	api.HandleFunc("/balances", s.handleAllBalances).Methods("GET")
	api.HandleFunc("/balances/{address}", s.handleGetBalance).Methods("GET")
	api.HandleFunc("/balances/{address}/refresh", s.handleRefreshBalance).Methods("POST")

	// WebSocket endpoint
	s.router.HandleFunc("/ws", s.handleWebSocket)

	// Health check
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	go s.hub.Run()

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	s.log.Infow("api_server_starting", "addr", addr)
	return http.ListenAndServe(addr, c.Handler(s.router))
}

// NotifyFilled pushes the sweep's filled orders to WebSocket
// subscribers of the "orders" channel. Implements scheduler.Notifier.
func (s *Server) NotifyFilled(orders []*venue.Order) {
	event := FilledOrdersEvent{
		Type:      "orders_filled",
		Orders:    make([]OrderResponse, len(orders)),
		Timestamp: time.Now().UnixMilli(),
	}
	for i, o := range orders {
		event.Orders[i] = toOrderResponse(o)
	}
	s.hub.BroadcastToChannel("orders", event)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if !common.IsHexAddress(req.WalletAddress) {
		respondError(w, http.StatusBadRequest, "invalid wallet address", "")
		return
	}
	kind, ok := parseOrderKind(req.Type)
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid order type", req.Type)
		return
	}

	order, err := s.svc.AdmitOrder(r.Context(), venue.CandidateOrder{
		Symbol:   req.Symbol,
		Price:    req.Price,
		Quantity: req.Quantity,
		Total:    req.Total,
		Kind:     kind,
		Wallet:   common.HexToAddress(req.WalletAddress),
		Class:    venue.CustomerClass(req.CustomerType),
	})
	if err != nil {
		respondVenueError(w, err)
		return
	}

	respondJSON(w, toOrderResponse(order))
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	walletStr := r.URL.Query().Get("wallet")
	if !common.IsHexAddress(walletStr) {
		respondError(w, http.StatusBadRequest, "invalid or missing wallet parameter", "")
		return
	}

	orders, err := s.svc.ListOrders(r.Context(), common.HexToAddress(walletStr))
	if err != nil {
		respondVenueError(w, err)
		return
	}

	response := make([]OrderResponse, len(orders))
	for i, o := range orders {
		response[i] = toOrderResponse(o)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	order, err := s.svc.GetOrder(r.Context(), id)
	if err != nil {
		respondVenueError(w, err)
		return
	}
	respondJSON(w, toOrderResponse(order))
}

func (s *Server) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := s.svc.CancelOrder(r.Context(), id); err != nil {
		respondVenueError(w, err)
		return
	}
	respondJSON(w, CancelOrderResponse{Canceled: true, OrderID: id})
}

func (s *Server) handleAllBalances(w http.ResponseWriter, r *http.Request) {
	balances, err := s.balances.All(r.Context())
	if err != nil {
		respondVenueError(w, err)
		return
	}

	response := make([]BalanceResponse, len(balances))
	for i, b := range balances {
		response[i] = toBalanceResponse(b)
	}
	respondJSON(w, response)
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	addressStr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}

	balance, err := s.balances.Get(r.Context(), common.HexToAddress(addressStr))
	if err != nil {
		respondVenueError(w, err)
		return
	}
	respondJSON(w, toBalanceResponse(balance))
}

func (s *Server) handleRefreshBalance(w http.ResponseWriter, r *http.Request) {
	addressStr := mux.Vars(r)["address"]
	if !common.IsHexAddress(addressStr) {
		respondError(w, http.StatusBadRequest, "invalid address", "")
		return
	}

	balance, err := s.balances.Refresh(r.Context(), common.HexToAddress(addressStr))
	if err != nil {
		respondVenueError(w, err)
		return
	}
	respondJSON(w, toBalanceResponse(balance))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helpers
// ==============================

func parseOrderKind(s string) (venue.OrderKind, bool) {
	switch s {
	case "buy-limit":
		return venue.BuyLimit, true
	case "sell-limit":
		return venue.SellLimit, true
	case "buy-market":
		return venue.BuyMarket, true
	case "sell-market":
		return venue.SellMarket, true
	case "buy":
		return venue.Buy, true
	case "sell":
		return venue.Sell, true
	default:
		return 0, false
	}
}

// respondVenueError maps the venue error taxonomy onto HTTP statuses.
func respondVenueError(w http.ResponseWriter, err error) {
	var vErr *venue.ValidationError
	var ibErr *venue.InsufficientBalanceError

	switch {
	case errors.As(err, &vErr):
		respondError(w, http.StatusBadRequest, vErr.Reason, "")
	case errors.As(err, &ibErr):
		respondError(w, http.StatusBadRequest, ibErr.Error(), "")
	case errors.Is(err, venue.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "order not found", "")
	case errors.Is(err, venue.ErrNotPending):
		respondError(w, http.StatusUnprocessableEntity, venue.ErrNotPending.Error(), "")
	case errors.Is(err, venue.ErrLedgerUnavailable):
		respondError(w, http.StatusServiceUnavailable, "ledger unavailable", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}

func respondJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Error: message, Detail: detail})
}
