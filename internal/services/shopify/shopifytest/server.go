// Package shopifytest provides an in-memory Shopify Admin API for tests.
package shopifytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"storesync/internal/services/shopify"
)

const Token = "shpat_test_token"

// AuthCode is the only OAuth code the token endpoint accepts.
const AuthCode = "test-auth-code"

type Server struct {
	*httptest.Server

	mu            sync.Mutex
	customers     []shopify.Customer
	webhooks      []shopify.Webhook
	nextWebhookID int64
	failures      []int
	failTopics    map[string]bool
	requests      int
}

func NewServer() *Server {
	s := &Server{nextWebhookID: 1000, failTopics: make(map[string]bool)}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/api/{version}/customers.json", s.listCustomers)
	mux.HandleFunc("GET /admin/api/{version}/webhooks.json", s.listWebhooks)
	mux.HandleFunc("POST /admin/api/{version}/webhooks.json", s.createWebhook)
	mux.HandleFunc("DELETE /admin/api/{version}/webhooks/{file}", s.deleteWebhook)
	mux.HandleFunc("GET /admin/api/{version}/shop.json", s.shop)
	mux.HandleFunc("POST /admin/oauth/access_token", s.accessToken)

	s.Server = httptest.NewServer(s.guard(mux))
	return s
}

// SetCustomers replaces the store's customers.
func (s *Server) SetCustomers(customers []shopify.Customer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.customers = append([]shopify.Customer(nil), customers...)
}

// AddWebhook seeds an existing subscription and returns its ID.
func (s *Server) AddWebhook(topic, address string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextWebhookID++
	s.webhooks = append(s.webhooks, shopify.Webhook{ID: s.nextWebhookID, Topic: topic, Address: address, Format: "json"})
	return s.nextWebhookID
}

func (s *Server) Webhooks() []shopify.Webhook {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]shopify.Webhook(nil), s.webhooks...)
}

// FailNext makes the next len(statuses) requests answer with those
// statuses. A zero lets that request through.
func (s *Server) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// FailTopic makes webhook creation for topic answer 422.
func (s *Server) FailTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failTopics[topic] = true
}

func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) guard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests++
		var status int
		if len(s.failures) > 0 {
			status, s.failures = s.failures[0], s.failures[1:]
		}
		s.mu.Unlock()

		if status != 0 {
			http.Error(w, `{"errors":"injected failure"}`, status)
			return
		}
		if r.URL.Path != "/admin/oauth/access_token" && r.Header.Get("X-Shopify-Access-Token") != Token {
			http.Error(w, `{"errors":"[API] Invalid API key or access token"}`, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listCustomers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	all := append([]shopify.Customer(nil), s.customers...)
	s.mu.Unlock()

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > shopify.PageSize {
		limit = 50
	}
	offset := 0
	if cursor := r.URL.Query().Get("page_info"); cursor != "" {
		offset, _ = strconv.Atoi(cursor)
	}

	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	page := all[offset:end]

	if end < len(all) {
		next := url.Values{"limit": {strconv.Itoa(limit)}, "page_info": {strconv.Itoa(end)}}
		w.Header().Set("Link", fmt.Sprintf(`<%s%s?%s>; rel="next"`, s.URL, r.URL.Path, next.Encode()))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"customers": page})
}

func (s *Server) listWebhooks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"webhooks": s.Webhooks()})
}

func (s *Server) createWebhook(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Webhook shopify.Webhook `json:"webhook"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"errors":"bad json"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failTopics[req.Webhook.Topic] {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{"errors": map[string][]string{"topic": {"Invalid topic specified"}}})
		return
	}
	s.nextWebhookID++
	req.Webhook.ID = s.nextWebhookID
	s.webhooks = append(s.webhooks, req.Webhook)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"webhook": req.Webhook})
}

func (s *Server) deleteWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(strings.TrimSuffix(r.PathValue("file"), ".json"), 10, 64)
	if err != nil {
		http.Error(w, `{"errors":"Not Found"}`, http.StatusNotFound)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, webhook := range s.webhooks {
		if webhook.ID == id {
			s.webhooks = append(s.webhooks[:i], s.webhooks[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]interface{}{})
			return
		}
	}
	http.Error(w, `{"errors":"Not Found"}`, http.StatusNotFound)
}

func (s *Server) shop(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"shop": shopify.Shop{
		ID:              1,
		Name:            "Test Shop",
		Email:           "owner@example.com",
		MyshopifyDomain: "test-shop.myshopify.com",
		Currency:        "USD",
	}})
}

func (s *Server) accessToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != AuthCode {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid_request"})
		return
	}
	writeJSON(w, http.StatusOK, shopify.TokenResponse{AccessToken: Token, Scope: shopify.OAuthScopes})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
