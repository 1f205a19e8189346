package rest

import (
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/feral-file/ff-boxoffice/internal/authorizer"
	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/engine"
	"github.com/feral-file/ff-boxoffice/internal/registry"
)

// Handler defines the interface for REST API handlers
// This interface allows for easy mocking and testing
//
//go:generate mockgen -source=handler.go -destination=../../mocks/api_handler.go -package=mocks -mock_names=Handler=MockAPIHandler
type Handler interface {
	// HealthCheck returns the health status of the API
	// GET /health
	HealthCheck(c *gin.Context)

	// ListBoxes retrieves the full catalog
	// GET /api/v1/boxes
	ListBoxes(c *gin.Context)

	// GetBox retrieves a single box
	// GET /api/v1/boxes/:id
	GetBox(c *gin.Context)

	// PurchaseCoin executes a native-currency purchase
	// POST /api/v1/purchases/coin
	PurchaseCoin(c *gin.Context)

	// PurchaseToken executes an ERC-20 purchase
	// POST /api/v1/purchases/token
	PurchaseToken(c *gin.Context)

	// PurchaseFree executes a signature-gated free purchase
	// POST /api/v1/purchases/free
	PurchaseFree(c *gin.Context)

	// VerifyAuthorization checks a purchase authorization without consuming it
	// GET /api/v1/purchases/verify?box_id=&buyer=&nonce=&signature=
	VerifyAuthorization(c *gin.Context)

	// CreateBox adds a box to the catalog (requires authentication)
	// POST /api/v1/boxes
	CreateBox(c *gin.Context)

	// EnableBox enables a box (requires authentication)
	// POST /api/v1/boxes/:id/enable
	EnableBox(c *gin.Context)

	// DisableBox disables a box (requires authentication)
	// POST /api/v1/boxes/:id/disable
	DisableBox(c *gin.Context)

	// SetBoxPrice changes a priced box's price (requires authentication)
	// PUT /api/v1/boxes/:id/price
	SetBoxPrice(c *gin.Context)

	// SetBoxSignatureRequirement toggles the signature gate (requires authentication)
	// PUT /api/v1/boxes/:id/signature-requirement
	SetBoxSignatureRequirement(c *gin.Context)

	// PauseSale closes the sale gate (requires authentication)
	// POST /api/v1/sale/pause
	PauseSale(c *gin.Context)

	// UnpauseSale reopens the sale gate (requires authentication)
	// POST /api/v1/sale/unpause
	UnpauseSale(c *gin.Context)

	// GetSaleState retrieves the sale configuration (requires authentication)
	// GET /api/v1/sale
	GetSaleState(c *gin.Context)

	// SetPaymentAddress changes the payment destination (requires authentication)
	// PUT /api/v1/sale/payment-address
	SetPaymentAddress(c *gin.Context)

	// SetSignerAddress changes the trusted signer (requires authentication)
	// PUT /api/v1/sale/signer-address
	SetSignerAddress(c *gin.Context)

	// SetBaseURI changes the item metadata base (requires authentication)
	// PUT /api/v1/sale/base-uri
	SetBaseURI(c *gin.Context)

	// CreateWebhookEndpoint registers an event consumer (requires authentication)
	// POST /api/v1/webhooks/endpoints
	CreateWebhookEndpoint(c *gin.Context)
}

// handler implements the Handler interface
type handler struct {
	registry *registry.Registry
	engine   *engine.Engine
}

// NewHandler creates a new REST API handler
func NewHandler(reg *registry.Registry, eng *engine.Engine) Handler {
	return &handler{registry: reg, engine: eng}
}

// HealthCheck returns the health status of the API
func (h *handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListBoxes retrieves the full catalog
func (h *handler) ListBoxes(c *gin.Context) {
	boxes, err := h.registry.ListBoxes(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to list boxes")
		return
	}

	responses := make([]BoxResponse, 0, len(boxes))
	for i := range boxes {
		responses = append(responses, boxToResponse(&boxes[i]))
	}
	c.JSON(http.StatusOK, gin.H{"boxes": responses})
}

// GetBox retrieves a single box
func (h *handler) GetBox(c *gin.Context) {
	id, ok := parseBoxID(c)
	if !ok {
		return
	}

	box, err := h.registry.GetBox(c.Request.Context(), id)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, boxToResponse(box))
}

// PurchaseCoin executes a native-currency purchase
func (h *handler) PurchaseCoin(c *gin.Context) {
	var req PurchaseCoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	buyer, ok := parseAddress(c, req.Buyer, "buyer")
	if !ok {
		return
	}
	amount, valid := new(big.Int).SetString(req.Amount, 10)
	if !valid || amount.Sign() < 0 {
		respondBadRequest(c, "Invalid amount", req.Amount)
		return
	}
	auth, ok := parseAuthorization(c, req.Nonce, req.Signature)
	if !ok {
		return
	}

	receipt, err := h.engine.PurchaseCoin(c.Request.Context(), engine.CoinPurchaseRequest{
		BoxID:  domain.BoxID(req.BoxID),
		Buyer:  buyer,
		Amount: amount,
		Auth:   auth,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receiptToResponse(receipt))
}

// PurchaseToken executes an ERC-20 purchase
func (h *handler) PurchaseToken(c *gin.Context) {
	var req PurchaseTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	buyer, ok := parseAddress(c, req.Buyer, "buyer")
	if !ok {
		return
	}
	auth, ok := parseAuthorization(c, req.Nonce, req.Signature)
	if !ok {
		return
	}

	receipt, err := h.engine.PurchaseToken(c.Request.Context(), engine.TokenPurchaseRequest{
		BoxID: domain.BoxID(req.BoxID),
		Buyer: buyer,
		Auth:  auth,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receiptToResponse(receipt))
}

// PurchaseFree executes a signature-gated free purchase
func (h *handler) PurchaseFree(c *gin.Context) {
	var req PurchaseFreeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	buyer, ok := parseAddress(c, req.Buyer, "buyer")
	if !ok {
		return
	}
	auth, ok := parseAuthorization(c, req.Nonce, req.Signature)
	if !ok {
		return
	}
	if auth == nil {
		respondBadRequest(c, "Nonce and signature are required")
		return
	}

	receipt, err := h.engine.PurchaseFree(c.Request.Context(), engine.FreePurchaseRequest{
		BoxID: domain.BoxID(req.BoxID),
		Buyer: buyer,
		Auth:  *auth,
	})
	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, receiptToResponse(receipt))
}

// VerifyAuthorization checks a purchase authorization without consuming it
func (h *handler) VerifyAuthorization(c *gin.Context) {
	boxID, err := strconv.ParseUint(c.Query("box_id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid box id", c.Query("box_id"))
		return
	}
	buyer, ok := parseAddress(c, c.Query("buyer"), "buyer")
	if !ok {
		return
	}
	auth, ok := parseAuthorization(c, c.Query("nonce"), c.Query("signature"))
	if !ok {
		return
	}
	if auth == nil {
		respondBadRequest(c, "Nonce and signature are required")
		return
	}

	valid, err := h.engine.VerifyAuthorization(c.Request.Context(), domain.BoxID(boxID), buyer, *auth)
	if err != nil {
		respondInternalError(c, err, "Failed to verify authorization")
		return
	}
	c.JSON(http.StatusOK, VerifyResponse{Valid: valid})
}

// CreateBox adds a box to the catalog
func (h *handler) CreateBox(c *gin.Context) {
	var req CreateBoxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	ctx := c.Request.Context()
	var box *domain.Box
	var err error

	switch req.Kind {
	case "coin", "token":
		price, valid := new(big.Int).SetString(req.Price, 10)
		if !valid {
			respondBadRequest(c, "Invalid price", req.Price)
			return
		}
		input := registry.CreateBoxInput{
			ID:                  domain.BoxID(req.ID),
			Price:               price,
			QuantityPerPurchase: req.QuantityPerPurchase,
			MaxSupply:           req.MaxSupply,
			RequiresSignature:   req.RequiresSignature,
		}
		if req.Kind == "coin" {
			box, err = h.registry.CreateCoinBox(ctx, input)
		} else {
			tokenContract, ok := parseAddress(c, req.TokenContract, "token contract")
			if !ok {
				return
			}
			box, err = h.registry.CreateTokenBox(ctx, input, tokenContract)
		}

	case "free":
		box, err = h.registry.CreateFreeBox(ctx, domain.BoxID(req.ID), req.QuantityPerPurchase, req.MaxSupply)

	default:
		respondBadRequest(c, "Invalid box kind", req.Kind)
		return
	}

	if err != nil {
		respondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, boxToResponse(box))
}

// EnableBox enables a box
func (h *handler) EnableBox(c *gin.Context) {
	h.setEnabled(c, true)
}

// DisableBox disables a box
func (h *handler) DisableBox(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *handler) setEnabled(c *gin.Context, target bool) {
	id, ok := parseBoxID(c)
	if !ok {
		return
	}

	if err := h.registry.SetEnabled(c.Request.Context(), id, target); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetBoxPrice changes a priced box's price
func (h *handler) SetBoxPrice(c *gin.Context) {
	id, ok := parseBoxID(c)
	if !ok {
		return
	}

	var req SetPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	price, valid := new(big.Int).SetString(req.Price, 10)
	if !valid {
		respondBadRequest(c, "Invalid price", req.Price)
		return
	}

	if err := h.registry.SetPrice(c.Request.Context(), id, price); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetBoxSignatureRequirement toggles the signature gate on a priced box
func (h *handler) SetBoxSignatureRequirement(c *gin.Context) {
	id, ok := parseBoxID(c)
	if !ok {
		return
	}

	var req SetSignatureRequirementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	if err := h.registry.SetSignatureRequirement(c.Request.Context(), id, *req.Required); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PauseSale closes the sale gate
func (h *handler) PauseSale(c *gin.Context) {
	h.setPaused(c, true)
}

// UnpauseSale reopens the sale gate
func (h *handler) UnpauseSale(c *gin.Context) {
	h.setPaused(c, false)
}

func (h *handler) setPaused(c *gin.Context, paused bool) {
	if err := h.registry.SetPaused(c.Request.Context(), paused); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetSaleState retrieves the sale configuration
func (h *handler) GetSaleState(c *gin.Context) {
	state, err := h.registry.GetSaleState(c.Request.Context())
	if err != nil {
		respondInternalError(c, err, "Failed to get sale state")
		return
	}
	c.JSON(http.StatusOK, SaleStateResponse{
		Paused:         state.Paused,
		PaymentAddress: state.PaymentAddress.Hex(),
		SignerAddress:  state.TrustedSigner.Hex(),
		BaseURI:        state.BaseURI,
	})
}

// SetPaymentAddress changes the payment destination
func (h *handler) SetPaymentAddress(c *gin.Context) {
	addr, ok := bindAddress(c)
	if !ok {
		return
	}
	if err := h.registry.SetPaymentAddress(c.Request.Context(), addr); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetSignerAddress changes the trusted signer
func (h *handler) SetSignerAddress(c *gin.Context) {
	addr, ok := bindAddress(c)
	if !ok {
		return
	}
	if err := h.registry.SetTrustedSigner(c.Request.Context(), addr); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SetBaseURI changes the item metadata base
func (h *handler) SetBaseURI(c *gin.Context) {
	var req SetBaseURIRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}
	if err := h.registry.SetBaseURI(c.Request.Context(), req.BaseURI); err != nil {
		respondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateWebhookEndpoint registers an event consumer
func (h *handler) CreateWebhookEndpoint(c *gin.Context) {
	var req CreateWebhookEndpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return
	}

	endpoint, err := h.registry.RegisterWebhookEndpoint(c.Request.Context(), req.URL, req.Secret)
	if err != nil {
		respondInternalError(c, err, "Failed to register webhook endpoint")
		return
	}
	c.JSON(http.StatusCreated, WebhookEndpointResponse{
		ID:        endpoint.ID,
		URL:       endpoint.URL,
		CreatedAt: endpoint.CreatedAt,
	})
}

// parseBoxID parses the :id path parameter; responds 400 on failure.
func parseBoxID(c *gin.Context) (domain.BoxID, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		respondBadRequest(c, "Invalid box id", c.Param("id"))
		return 0, false
	}
	return domain.BoxID(id), true
}

// parseAddress parses a hex address; responds 400 on failure.
func parseAddress(c *gin.Context, s, name string) (common.Address, bool) {
	if !common.IsHexAddress(s) {
		msg := "Invalid address"
		if name != "" {
			msg = "Invalid " + name + " address"
		}
		respondBadRequest(c, msg, s)
		return common.Address{}, false
	}
	return common.HexToAddress(s), true
}

// bindAddress binds a {address} body and parses it.
func bindAddress(c *gin.Context) (common.Address, bool) {
	var req SetAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err.Error())
		return common.Address{}, false
	}
	return parseAddress(c, req.Address, "")
}

// parseAuthorization builds the optional authorization from nonce and
// signature fields. Both empty means no authorization; one without the
// other is a 400.
func parseAuthorization(c *gin.Context, nonceStr, signatureStr string) (*engine.Authorization, bool) {
	if nonceStr == "" && signatureStr == "" {
		return nil, true
	}
	if nonceStr == "" || signatureStr == "" {
		respondBadRequest(c, "Nonce and signature must be provided together")
		return nil, false
	}

	nonce, valid := new(big.Int).SetString(nonceStr, 10)
	if !valid || nonce.Sign() < 0 {
		respondBadRequest(c, "Invalid nonce", nonceStr)
		return nil, false
	}
	signature, err := authorizer.DecodeSignature(signatureStr)
	if err != nil {
		respondBadRequest(c, "Invalid signature encoding", err.Error())
		return nil, false
	}

	return &engine.Authorization{Nonce: nonce, Signature: signature}, true
}
