// Package server exposes a dataservice.Service over HTTP with the JSON
// envelope, a websocket change feed and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/standardbeagle/estimator/internal/dataservice"
	"github.com/standardbeagle/estimator/pkg/events"
)

const shutdownTimeout = 5 * time.Second

// Subscriber is the part of the event bus the change feed listens on.
type Subscriber interface {
	SubscribeAll(types []events.EventType, handler events.Handler)
}

type Server struct {
	svc      dataservice.Service
	hub      *Hub
	router   *mux.Router
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithGatherer serves g at /metrics instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

func New(svc dataservice.Service, opts ...Option) *Server {
	s := &Server{
		svc:      svc,
		router:   mux.NewRouter(),
		gatherer: prometheus.DefaultGatherer,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.hub = NewHub(s.logger)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/estimates", s.handleListEstimates).Methods(http.MethodGet)
	api.HandleFunc("/estimates", s.handleCreateEstimate).Methods(http.MethodPost)
	api.HandleFunc("/estimates/{estimateID}", s.handleRemoveEstimate).Methods(http.MethodDelete)
	api.HandleFunc("/estimates/{estimateID}/rooms", s.handleCreateRoom).Methods(http.MethodPost)
	api.HandleFunc("/estimates/{estimateID}/rooms/{roomID}", s.handleRemoveRoom).Methods(http.MethodDelete)
	api.HandleFunc("/estimates/{estimateID}/rooms/{roomID}/products", s.handleAddProduct).Methods(http.MethodPost)
	api.HandleFunc("/estimates/{estimateID}/rooms/{roomID}/products/{productID}", s.handleReplaceProduct).Methods(http.MethodPut)
	api.HandleFunc("/estimates/{estimateID}/rooms/{roomID}/products/{index:[0-9]+}", s.handleRemoveProduct).Methods(http.MethodDelete)
	api.HandleFunc("/estimates/{estimateID}/rooms/{roomID}/related", s.handleRelated).Methods(http.MethodGet)
	api.HandleFunc("/products", s.handleListProducts).Methods(http.MethodGet)
	api.HandleFunc("/products/{productID}/variations", s.handleVariations).Methods(http.MethodGet)

	s.router.Handle("/ws", s.hub).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeFailure(w, http.StatusNotFound, dataservice.ErrorData{NotFound: true, Message: "no route for " + r.URL.Path})
	})
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// Hub returns the change feed.
func (s *Server) Hub() *Hub { return s.hub }

// Attach forwards every mutation published on bus to the change feed.
func (s *Server) Attach(bus Subscriber) {
	bus.SubscribeAll(events.MutationTypes, s.hub.Broadcast)
}

// Serve accepts connections on l until ctx is done, then shuts down
// gracefully.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(l)
	}()
	s.logger.Info("http api listening", zap.String("addr", l.Addr().String()))

	select {
	case err := <-errCh:
		s.hub.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http api: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, l)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"subscribers": s.hub.Len(),
	})
}

func (s *Server) handleListEstimates(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListEstimates(r.Context())
	s.reply(w, r, list, err)
}

func (s *Server) handleCreateEstimate(w http.ResponseWriter, r *http.Request) {
	var in dataservice.EstimateInput
	if !decode(w, r, &in) {
		return
	}
	res, err := s.svc.CreateEstimate(r.Context(), in)
	s.reply(w, r, res, err)
}

func (s *Server) handleRemoveEstimate(w http.ResponseWriter, r *http.Request) {
	err := s.svc.RemoveEstimate(r.Context(), mux.Vars(r)["estimateID"])
	s.reply(w, r, nil, err)
}

type createRoomRequest struct {
	dataservice.RoomInput
	ProductID string `json:"product_id"`
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var in createRoomRequest
	if !decode(w, r, &in) {
		return
	}
	res, err := s.svc.CreateRoom(r.Context(), mux.Vars(r)["estimateID"], in.RoomInput, in.ProductID)
	s.reply(w, r, res, err)
}

func (s *Server) handleRemoveRoom(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	err := s.svc.RemoveRoom(r.Context(), vars["estimateID"], vars["roomID"])
	s.reply(w, r, nil, err)
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProductID string `json:"product_id"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.ProductID == "" {
		s.reply(w, r, nil, dataservice.Invalid("product_id", "product_id is required"))
		return
	}
	vars := mux.Vars(r)
	res, err := s.svc.AddProductToRoom(r.Context(), vars["roomID"], in.ProductID, vars["estimateID"])
	s.reply(w, r, res, err)
}

func (s *Server) handleReplaceProduct(w http.ResponseWriter, r *http.Request) {
	var in struct {
		NewProductID string `json:"new_product_id"`
	}
	if !decode(w, r, &in) {
		return
	}
	if in.NewProductID == "" {
		s.reply(w, r, nil, dataservice.Invalid("new_product_id", "new_product_id is required"))
		return
	}
	vars := mux.Vars(r)
	res, err := s.svc.ReplaceProductInRoom(r.Context(), vars["estimateID"], vars["roomID"], vars["productID"], in.NewProductID)
	s.reply(w, r, res, err)
}

func (s *Server) handleRemoveProduct(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	index, err := strconv.Atoi(vars["index"])
	if err != nil {
		s.reply(w, r, nil, dataservice.Invalid("index", "index must be a number"))
		return
	}
	productID := r.URL.Query().Get("product_id")
	res, err := s.svc.RemoveProductFromRoom(r.Context(), vars["estimateID"], vars["roomID"], index, productID)
	s.reply(w, r, res, err)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	res, err := s.svc.GetRelatedItems(r.Context(), vars["estimateID"], vars["roomID"])
	s.reply(w, r, res, err)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.ListProducts(r.Context())
	s.reply(w, r, list, err)
}

func (s *Server) handleVariations(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.GetProductVariationData(r.Context(), mux.Vars(r)["productID"])
	s.reply(w, r, res, err)
}
