package domain

import "errors"

var (
	// ErrInvalidIdentifier is returned when a box identifier is zero.
	ErrInvalidIdentifier = errors.New("invalid box identifier")

	// ErrInvalidPrice is returned when a price is zero where a nonzero price is required.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidQuantity is returned when a box's quantity per purchase is zero.
	ErrInvalidQuantity = errors.New("invalid quantity per purchase")

	// ErrBoxAlreadyExists is returned when creating a box with an identifier already in use.
	ErrBoxAlreadyExists = errors.New("box already exists")

	// ErrBoxNotFound is returned when the referenced box does not exist.
	ErrBoxNotFound = errors.New("box not found")

	// ErrAlreadyInState is returned when an enable/disable or pause/unpause
	// request matches the current state.
	ErrAlreadyInState = errors.New("already in requested state")

	// ErrBoxIsFree is returned when a priced operation targets a free box.
	ErrBoxIsFree = errors.New("box is free")

	// ErrBoxNotFree is returned when the free purchase path targets a priced box.
	ErrBoxNotFree = errors.New("box is not free")

	// ErrBoxDisabled is returned when purchasing a disabled box.
	ErrBoxDisabled = errors.New("box disabled")

	// ErrSoldOut is returned when a box has reached its supply cap.
	ErrSoldOut = errors.New("box sold out")

	// ErrSalePaused is returned while the global sale gate is closed.
	ErrSalePaused = errors.New("sale paused")

	// ErrWrongPaymentKind is returned when a purchase entry point does not
	// match the box's payment configuration.
	ErrWrongPaymentKind = errors.New("wrong payment kind for box")

	// ErrWrongAmount is returned when the attached native-currency amount
	// does not equal the box price exactly.
	ErrWrongAmount = errors.New("wrong payment amount")

	// ErrSignatureRequired is returned when a signature-gated box is bought
	// through the unsigned path.
	ErrSignatureRequired = errors.New("signature required for box")

	// ErrSignatureNotRequired is returned when an authorization is supplied
	// for a box that is not signature-gated.
	ErrSignatureNotRequired = errors.New("signature not required for box")

	// ErrInvalidSignature is returned when the authorization does not
	// recover to the trusted signer.
	ErrInvalidSignature = errors.New("invalid signature")

	// ErrNonceAlreadyUsed is returned when the authorization nonce has been
	// consumed by any earlier purchase.
	ErrNonceAlreadyUsed = errors.New("nonce already used")

	// ErrPaymentForwardingFailed is returned when the payment destination
	// rejects a native-currency transfer. The purchase is rolled back.
	ErrPaymentForwardingFailed = errors.New("payment forwarding failed")

	// ErrPaymentTransferFailed is returned when the fungible-token pull
	// fails. The purchase is rolled back.
	ErrPaymentTransferFailed = errors.New("payment transfer failed")

	// ErrInvalidPaymentAddress is returned when setting the payment
	// destination to the zero address.
	ErrInvalidPaymentAddress = errors.New("invalid payment address")

	// ErrInvalidSignerAddress is returned when setting the trusted signer
	// to the zero address.
	ErrInvalidSignerAddress = errors.New("invalid signer address")
)
