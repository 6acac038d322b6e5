// Package config provides type-safe environment variable loading with caching
// using Go generics. Each configuration type is loaded once and cached for
// subsequent calls.
//
// A .env file is loaded on first use, and caarlos0/env parses variables into
// struct fields.
//
//	var cfg mfa.Config
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
//	// Or panic on failure (useful for startup)
//	var lc lockout.Config
//	config.MustLoad(&lc)
//
// # Caching Behavior
//
// Each configuration type is loaded only once per process:
//
//	var a mfa.Config
//	config.Load(&a) // parses the environment
//
//	var b mfa.Config
//	config.Load(&b) // copies the cached value, a == b
//
// Different types are cached independently.
package config
