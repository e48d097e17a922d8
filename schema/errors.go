package schema

import "errors"

// Sentinel errors shared across packages.
var (
	// ErrInsufficientData means too few labeled examples to train a model.
	ErrInsufficientData = errors.New("insufficient labeled data to train a model")

	// ErrFeatureMismatch means a feature vector does not match the expected layout.
	ErrFeatureMismatch = errors.New("feature vector does not match model features")

	// ErrUnknownModelParameters means the model parameters are of an unsupported variant.
	ErrUnknownModelParameters = errors.New("unknown model parameters")
)
