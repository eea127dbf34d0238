package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"MerchantCheckout/internal/checkout"
	"MerchantCheckout/internal/credentials"
	"MerchantCheckout/internal/devices"
	"MerchantCheckout/internal/gateway"
	"MerchantCheckout/internal/models"
	"MerchantCheckout/internal/settings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type Handler struct {
	MerchantID   string
	Orchestrator *checkout.Orchestrator
	Legacy       *gateway.LegacyGateway
	CBDC         *gateway.CBDCGateway
	Settings     *settings.Cache
	Credentials  *credentials.Service
	Registry     *devices.Registry
	Capabilities checkout.CapabilityChecker
	Logger       zerolog.Logger
}

type checkoutRequest struct {
	Amount        decimal.Decimal      `json:"amount"`
	Currency      string               `json:"currency"`
	PaymentMethod models.PaymentMethod `json:"paymentMethod"`
	CartItems     []models.CartItem    `json:"cartItems"`
	Metadata      map[string]string    `json:"metadata"`
}

func (h *Handler) ProcessPayment(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	result, err := h.Orchestrator.ProcessPayment(r.Context(), models.CheckoutOptions{
		MerchantID:    h.MerchantID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		PaymentMethod: req.PaymentMethod,
		CartItems:     req.CartItems,
		Metadata:      req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, checkout.ErrUnsupportedPaymentMethod):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, checkout.ErrInvalidAmount):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.Logger.Error().Err(err).Msg("process payment failed")
			writeError(w, http.StatusInternalServerError, "process payment failed")
		}
		return
	}

	// A failed payment is a normal outcome, not an HTTP error.
	writeJSON(w, http.StatusOK, result)
}

type callbackRequest struct {
	TransactionRef string `json:"transactionRef"`
	TransactionID  string `json:"transactionId"`
	Status         string `json:"status"`
	Error          string `json:"error"`
}

func (h *Handler) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.TransactionRef == "" {
		writeError(w, http.StatusBadRequest, "missing transaction ref")
		return
	}

	result := models.PaymentResult{
		TransactionID: req.TransactionID,
		Status:        models.PaymentStatus(req.Status),
		Error:         req.Error,
	}
	result.Success = result.Status == models.StatusCompleted || result.Status == models.StatusPending

	handled := h.Legacy.HandleNotification(req.TransactionRef, result)
	writeJSON(w, http.StatusOK, map[string]bool{"handled": handled})
}

func (h *Handler) GetCapabilities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"applePay":  h.Capabilities.ApplePayAvailable(),
		"googlePay": h.Capabilities.GooglePayAvailable(),
	})
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{
		"bridgeEnabled": h.Settings.IsBridgeEnabled(),
		"cbdcEnabled":   h.Settings.IsCBDCEnabled(),
	})
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

func (h *Handler) ToggleBridge(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	h.Settings.ToggleBridge(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"bridgeEnabled": h.Settings.IsBridgeEnabled()})
}

func (h *Handler) ToggleCBDC(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	h.Settings.ToggleCBDC(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"cbdcEnabled": h.Settings.IsCBDCEnabled()})
}

func (h *Handler) GetCredentials(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Credentials.Load(r.Context(), h.MerchantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "load credentials failed")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

type saveOutcomeResponse struct {
	Primary   string `json:"primary"`
	Secondary string `json:"secondary"`
}

func (h *Handler) SaveCredentials(w http.ResponseWriter, r *http.Request) {
	var req models.MerchantCredentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	outcome := h.Credentials.Save(r.Context(), h.MerchantID, &req)
	resp := saveOutcomeResponse{Primary: "ok", Secondary: "ok"}
	if outcome.Primary != nil {
		resp.Primary = outcome.Primary.Error()
	}
	if outcome.Secondary != nil {
		resp.Secondary = outcome.Secondary.Error()
	}

	status := http.StatusOK
	if outcome.Primary != nil {
		status = http.StatusBadGateway
	}
	writeJSON(w, status, resp)
}

func (h *Handler) GetDeviceStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"connected": h.Registry.IsDeviceConnected(),
		"deviceId":  h.Registry.ConnectedDeviceID(),
	})
}

type registerWalletRequest struct {
	WalletType string `json:"walletType"`
}

func (h *Handler) RegisterWallet(w http.ResponseWriter, r *http.Request) {
	var req registerWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if req.WalletType == "" {
		writeError(w, http.StatusBadRequest, "missing wallet type")
		return
	}

	deviceID, err := h.Registry.RegisterWallet(r.Context(), req.WalletType)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("wallet registration failed")
		writeError(w, http.StatusBadGateway, "wallet registration failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deviceId": deviceID})
}

func (h *Handler) GetTransactionStatus(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}
	res := h.CBDC.GetTransactionStatus(r.Context(), h.MerchantID, transactionID)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) CancelPayment(w http.ResponseWriter, r *http.Request) {
	transactionID := chi.URLParam(r, "transactionId")
	if transactionID == "" {
		writeError(w, http.StatusBadRequest, "missing transaction id")
		return
	}
	res := h.CBDC.CancelPayment(r.Context(), h.MerchantID, transactionID)
	writeJSON(w, http.StatusOK, res)
}
