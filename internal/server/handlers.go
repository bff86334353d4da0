package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/stupside/vidrelay/internal/media"
	"github.com/stupside/vidrelay/internal/provider"
	"github.com/stupside/vidrelay/internal/relay"
)

const (
	maxProxyBodyBytes = 64 << 10
	debugListLimit    = 5
)

// providerInfo is one entry of the public provider list.
type providerInfo struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// publicProviders is what /providers advertises, whatever is configured.
var publicProviders = []providerInfo{
	{ID: "8stream", Name: "8Stream", Priority: 1},
	{ID: "ee3", Name: "EE3", Priority: 2},
	{ID: "streambox", Name: "StreamBox", Priority: 3},
	{ID: "soapertv", Name: "SoaperTV", Priority: 4},
}

type getResponse struct {
	Success   bool          `json:"success"`
	Data      *media.Result `json:"data"`
	Fallbacks []string      `json:"fallbacks"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	// Every non-success answer still offers the fallback players.
	fail := func(status int, msg string) {
		writeJSON(w, r, status, errorBody{Error: msg, Fallbacks: s.resolver.Fallbacks()})
	}

	q, err := media.ParseQuery(r.URL.Query())
	if err != nil {
		fail(http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.resolver.Resolve(r.Context(), q)
	switch {
	case media.IsValidation(err):
		fail(http.StatusBadRequest, err.Error())
		return
	case err != nil:
		slog.ErrorContext(r.Context(), "resolve failed", "query", q.String(), "error", err)
		fail(http.StatusInternalServerError, err.Error())
		return
	}

	if !out.Found() {
		writeJSON(w, r, http.StatusOK, errorBody{
			Error:     "no stream found, use one of the fallback players",
			Fallbacks: out.Fallbacks,
		})
		return
	}

	writeJSON(w, r, http.StatusOK, getResponse{Success: true, Data: out.Result, Fallbacks: out.Fallbacks})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, struct {
		Success bool           `json:"success"`
		Data    []providerInfo `json:"data"`
	}{Success: true, Data: publicProviders})
}

type debugResponse struct {
	Success      bool            `json:"success"`
	Status       string          `json:"status"`
	SourcesCount int             `json:"sourcesCount"`
	EmbedsCount  int             `json:"embedsCount"`
	Sources      []provider.Meta `json:"sources"`
	Embeds       []provider.Meta `json:"embeds"`
}

func (s *Server) handleDebug(w http.ResponseWriter, r *http.Request) {
	client := s.clients.Get(r.Context(), s.proxyURL)
	if client == nil {
		writeJSON(w, r, http.StatusServiceUnavailable, errorBody{
			Error:  "provider client could not be initialized",
			Status: "unavailable",
		})
		return
	}

	sources, embeds := client.ListSources(), client.ListEmbeds()
	writeJSON(w, r, http.StatusOK, debugResponse{
		Success:      true,
		Status:       "ready",
		SourcesCount: len(sources),
		EmbedsCount:  len(embeds),
		Sources:      sources[:min(len(sources), debugListLimit)],
		Embeds:       embeds[:min(len(embeds), debugListLimit)],
	})
}

type proxyRequest struct {
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

func (s *Server) handleProxy(w http.ResponseWriter, r *http.Request) {
	var req proxyRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxProxyBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, err := s.relay.Open(r.Context(), req.URL, req.Headers)
	switch {
	case errors.Is(err, relay.ErrMissingURL):
		writeError(w, r, http.StatusBadRequest, "url is required")
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	defer resp.Close()

	if n, err := resp.Stream(w); err != nil {
		slog.DebugContext(r.Context(), "relay stream ended early", "url", req.URL, "bytes", n, "error", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, struct {
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}{Success: true, Status: "ok"})
}
