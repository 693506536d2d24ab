package handlers

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"marketplace-svc/checkout"
	"marketplace-svc/models"
	"marketplace-svc/payment/paymenttest"
	"marketplace-svc/store"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func setupCheckoutTest(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *paymenttest.Gateway, *gin.Engine) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}

	logger := zaptest.NewLogger(t, zaptest.Level(zap.InfoLevel))
	gateway := paymenttest.NewGateway()
	svc := checkout.NewService(store.New(db), gateway, logger)
	handler := NewCheckoutHandler(svc, "http://localhost:3000", logger)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/checkout", handler.CreateCheckout)

	return db, mock, gateway, router
}

func expectProduct(mock sqlmock.Sqlmock, quantity int) {
	mock.ExpectQuery("SELECT id, name, quantity, price, email FROM products WHERE id = \\$1").
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "quantity", "price", "email"}).
			AddRow("p1", "Tomatoes", quantity, "5.00", "farmer@x"))
}

func postCheckout(router *gin.Engine, body string, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", "/api/checkout", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestCheckoutHandler_Success(t *testing.T) {
	db, mock, gateway, router := setupCheckoutTest(t)
	defer db.Close()

	expectProduct(mock, 10)

	w := postCheckout(router, `{"productId":"p1","quantity":3,"unitPrice":5}`, "https://shop.example")

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	var resp models.CheckoutResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if resp.URL != "https://checkout.test/cs_test_1" {
		t.Errorf("Unexpected url %q", resp.URL)
	}
	if len(gateway.Requests) != 1 || gateway.Requests[0].Origin != "https://shop.example" {
		t.Errorf("Expected one session request from the caller's origin, got %+v", gateway.Requests)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCheckoutHandler_DefaultOrigin(t *testing.T) {
	db, mock, gateway, router := setupCheckoutTest(t)
	defer db.Close()

	expectProduct(mock, 10)

	w := postCheckout(router, `{"productId":"p1","quantity":1}`, "")
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if gateway.Requests[0].Origin != "http://localhost:3000" {
		t.Errorf("Expected configured origin, got %q", gateway.Requests[0].Origin)
	}
}

func TestCheckoutHandler_InsufficientStock(t *testing.T) {
	db, mock, gateway, router := setupCheckoutTest(t)
	defer db.Close()

	expectProduct(mock, 2)

	w := postCheckout(router, `{"productId":"p1","quantity":3}`, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if len(gateway.Requests) != 0 {
		t.Errorf("Expected no checkout session, got %d", len(gateway.Requests))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Database expectations were not met: %v", err)
	}
}

func TestCheckoutHandler_ProductNotFound(t *testing.T) {
	db, mock, _, router := setupCheckoutTest(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM products WHERE id = \\$1").
		WithArgs("p1").
		WillReturnError(sql.ErrNoRows)

	w := postCheckout(router, `{"productId":"p1","quantity":1}`, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestCheckoutHandler_PriceMismatch(t *testing.T) {
	db, mock, gateway, router := setupCheckoutTest(t)
	defer db.Close()

	expectProduct(mock, 10)

	w := postCheckout(router, `{"productId":"p1","quantity":1,"unitPrice":"0.50"}`, "")

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	if len(gateway.Requests) != 0 {
		t.Errorf("Expected no checkout session, got %d", len(gateway.Requests))
	}
}

func TestCheckoutHandler_InvalidBody(t *testing.T) {
	db, _, _, router := setupCheckoutTest(t)
	defer db.Close()

	for _, body := range []string{`{"quantity":1}`, `{"productId":"p1"}`, `not json`} {
		w := postCheckout(router, body, "")
		if w.Code != http.StatusBadRequest {
			t.Errorf("Body %s: expected status %d, got %d", body, http.StatusBadRequest, w.Code)
		}
	}
}

func TestCheckoutHandler_GatewayFailure(t *testing.T) {
	db, mock, gateway, router := setupCheckoutTest(t)
	defer db.Close()

	expectProduct(mock, 10)
	gateway.CreateErr = errors.Join(models.ErrUpstream, errors.New("timeout"))

	w := postCheckout(router, `{"productId":"p1","quantity":1}`, "")

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}
}
