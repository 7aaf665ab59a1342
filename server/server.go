package main

import (
	"bytes"
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"filippo.io/age"
	"github.com/consensys/gnark/constraint"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"gnark-wnn/circuits/wnn"
	"gnark-wnn/model"
	"gnark-wnn/utils"
	"gnark-wnn/zkbackend"
)

const (
	maxImageSize     = 4 << 20
	defaultMaxProofs = 1024
)

var ageHeader = []byte("age-encryption.org/")

type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type RecipientResponse struct {
	Recipient string `json:"recipient"`
}

type ProofResponse struct {
	ID            string   `json:"id"`
	Backend       string   `json:"backend"`
	Proof         []byte   `json:"proof"`
	PublicSignals []uint64 `json:"publicSignals"`
}

type VerifyRequest struct {
	Proof         []byte   `json:"proof"`
	PublicSignals []uint64 `json:"publicSignals"`
}

type VerifyResponse struct {
	Valid bool `json:"valid"`
}

type Server struct {
	Model    *model.Model
	Backend  uint8
	Identity *age.X25519Identity
	Proofs   map[string]*ProofResponse

	// MaxProofs bounds Proofs. The oldest proof is evicted first.
	MaxProofs int

	order     []string
	ccs       constraint.ConstraintSystem
	pk        zkbackend.ProvingKey
	vk        zkbackend.VerifyingKey
	proveLock sync.Mutex
	sync.Mutex
}

// NewServer checks that the artifacts were generated for m and loads them.
func NewServer(m *model.Model, a *zkbackend.Artifacts, identity *age.X25519Identity) (*Server, error) {
	id, err := zkbackend.Parse(a.Manifest.Backend)
	if err != nil {
		return nil, err
	}
	digest, err := zkbackend.ModelDigest(m)
	if err != nil {
		return nil, err
	}
	if subtle.ConstantTimeCompare([]byte(digest), []byte(a.Manifest.ModelDigest)) != 1 {
		return nil, fmt.Errorf("model digest %s does not match manifest %s", digest, a.Manifest.ModelDigest)
	}
	checks := []struct {
		name     string
		data     []byte
		expected string
	}{
		{"proving key", a.ProvingKey, a.Manifest.KeyHash},
		{"circuit", a.CCS, a.Manifest.CircuitHash},
		{"verifying key", a.VerifyingKey, a.Manifest.VerifyingKeyHash},
	}
	for _, c := range checks {
		if got := zkbackend.HashBytes(c.data); got != c.expected {
			return nil, fmt.Errorf("%s hash %s does not match manifest %s", c.name, got, c.expected)
		}
	}

	s := &Server{
		Model:     m,
		Backend:   id,
		Identity:  identity,
		Proofs:    make(map[string]*ProofResponse),
		MaxProofs: defaultMaxProofs,
	}
	if s.ccs, err = zkbackend.ReadCS(id, a.CCS); err != nil {
		return nil, err
	}
	if s.pk, err = zkbackend.ReadProvingKey(id, a.ProvingKey); err != nil {
		return nil, err
	}
	if s.vk, err = zkbackend.ReadVerifyingKey(id, a.VerifyingKey); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{Status: "success", Message: "Server is up"})
}

func (s *Server) recipient(c echo.Context) error {
	return c.JSON(http.StatusOK, Response{
		Status: "success",
		Data:   RecipientResponse{Recipient: s.Identity.Recipient().String()},
	})
}

// prove accepts a PNG, optionally age-encrypted to the server recipient.
func (s *Server) prove(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxImageSize+1))
	if err != nil {
		log.Errorf("Failed to read request: %v", err)
		return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "Invalid request"})
	}
	if len(body) > maxImageSize {
		return c.JSON(http.StatusRequestEntityTooLarge, Response{Status: "error", Message: "Image too large"})
	}

	var identities []age.Identity
	if bytes.HasPrefix(body, ageHeader) {
		identities = append(identities, s.Identity)
	}
	image, err := s.Model.DecodeImage(bytes.NewReader(body), identities...)
	if errors.Is(err, model.ErrInvalidModel) {
		log.Errorf("Rejected image: %v", err)
		return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: err.Error()})
	}
	if err != nil {
		log.Errorf("Failed to decode image: %v", err)
		return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "Invalid image"})
	}
	scores, err := s.Model.Predict(image)
	if err != nil {
		log.Errorf("Rejected image: %v", err)
		return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: err.Error()})
	}

	s.proveLock.Lock()
	proof, err := zkbackend.Prove(s.Backend, s.ccs, s.pk, wnn.NewAssignment(image, scores))
	s.proveLock.Unlock()
	if err != nil {
		log.Errorf("Failed to prove: %v", err)
		return c.JSON(http.StatusInternalServerError, Response{Status: "error", Message: "Proving failed"})
	}

	name, _ := zkbackend.Name(s.Backend)
	res := &ProofResponse{
		ID:            uuid.NewString(),
		Backend:       name,
		Proof:         proof,
		PublicSignals: scores,
	}
	s.store(res)
	log.Infof("Generated proof %s with scores %v", res.ID, scores)
	return c.JSON(http.StatusOK, Response{Status: "success", Data: res})
}

func (s *Server) store(res *ProofResponse) {
	s.Lock()
	defer s.Unlock()
	s.Proofs[res.ID] = res
	s.order = append(s.order, res.ID)
	for len(s.order) > s.MaxProofs {
		delete(s.Proofs, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *Server) getProof(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "Invalid proof id"})
	}
	s.Lock()
	res, ok := s.Proofs[id]
	s.Unlock()
	if !ok {
		return c.JSON(http.StatusNotFound, Response{Status: "error", Message: "Proof not found"})
	}
	return c.JSON(http.StatusOK, Response{Status: "success", Data: res})
}

func (s *Server) verify(c echo.Context) error {
	var req VerifyRequest
	if err := c.Bind(&req); err != nil {
		log.Errorf("Failed to bind request: %v", err)
		return c.JSON(http.StatusBadRequest, Response{Status: "error", Message: "Invalid request format"})
	}
	if len(req.PublicSignals) != s.Model.NumClasses {
		return c.JSON(http.StatusBadRequest, Response{
			Status:  "error",
			Message: fmt.Sprintf("Expected %d public signals", s.Model.NumClasses),
		})
	}
	witness := &wnn.Circuit{Scores: utils.Uint64sToVariables(req.PublicSignals)}
	err := zkbackend.Verify(s.Backend, s.vk, req.Proof, witness)
	if err != nil {
		log.Infof("Proof rejected: %v", err)
	}
	return c.JSON(http.StatusOK, Response{Status: "success", Data: VerifyResponse{Valid: err == nil}})
}

func newEcho(s *Server) *echo.Echo {
	e := echo.New()
	e.Use(middleware.Logger())
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.INFO)
	e.GET("/health", s.health)
	e.GET("/recipient", s.recipient)
	e.POST("/prove", s.prove)
	e.GET("/proofs/:id", s.getProof)
	e.POST("/verify", s.verify)
	return e
}

func loadIdentity(key string) (*age.X25519Identity, error) {
	if key == "" {
		identity, err := age.GenerateX25519Identity()
		if err != nil {
			return nil, err
		}
		log.Infof("Generated ephemeral identity, recipient %s", identity.Recipient())
		return identity, nil
	}
	return age.ParseX25519Identity(key)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	port := getenv("PORT", "8080")
	modelPath := os.Getenv("MODEL_PATH")
	keysDir := getenv("KEYS_DIR", "../resources/gnark")
	backend := getenv("BACKEND", "groth16")
	maxProofs, err := strconv.Atoi(getenv("MAX_PROOFS", strconv.Itoa(defaultMaxProofs)))
	if err != nil || maxProofs <= 0 {
		log.Fatalf("Invalid MAX_PROOFS: %v", os.Getenv("MAX_PROOFS"))
	}

	if modelPath == "" {
		log.Fatal("MODEL_PATH is required")
	}
	m, err := model.Load(modelPath)
	if err != nil {
		log.Fatalf("Failed to load model: %v", err)
	}
	artifacts, err := zkbackend.LoadArtifacts(keysDir, backend, true)
	if err != nil {
		log.Fatalf("Failed to load artifacts: %v", err)
	}
	identity, err := loadIdentity(os.Getenv("AGE_IDENTITY"))
	if err != nil {
		log.Fatalf("Invalid AGE_IDENTITY: %v", err)
	}

	s, err := NewServer(m, artifacts, identity)
	if err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}
	s.MaxProofs = maxProofs

	e := newEcho(s)
	go func() {
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()
	log.Infof("Server started on :%s with backend %s and %d classes", port, backend, m.NumClasses)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Errorf("Failed to shutdown server gracefully: %v", err)
	}
}
