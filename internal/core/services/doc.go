// Package services holds the chatbot core: hybrid retrieval, the provider
// fallback chain, conversation memory and the orchestrator that ties them
// into a single Ask call. Everything here talks to infrastructure only
// through the driven ports.
package services
