package component

import "errors"

// Domain errors for the component package.
var (
	// ErrTypeNotFound is returned when a component type does not exist.
	ErrTypeNotFound = errors.New("component: type not found")

	// ErrTypeExists is returned when creating a component type whose
	// identifier is already taken.
	ErrTypeExists = errors.New("component: type already exists")

	// ErrDeploymentNotFound is returned when a deployment does not exist.
	ErrDeploymentNotFound = errors.New("component: deployment not found")

	// ErrDeploymentExists is returned when the device already carries a
	// deployment of the same component type.
	ErrDeploymentExists = errors.New("component: deployment already exists")

	// ErrInvalidCategory is returned when a category is not sensor or actuator.
	ErrInvalidCategory = errors.New("component: invalid category")

	// ErrInvalidStatus is returned when a connection status is not recognised.
	ErrInvalidStatus = errors.New("component: invalid connection status")

	// ErrInvalidType is returned when component type validation fails.
	ErrInvalidType = errors.New("component: invalid type")
)
