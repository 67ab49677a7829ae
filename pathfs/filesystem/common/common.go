package common

// This package contains shared utilities and types used across filesystem packages.
// It provides the error taxonomy for traversal and name resolution, path
// validation, and checksum helpers.

// Note: Utility types are defined in their respective files.
// Use constructors like common.NewPathUtils() to create instances.
