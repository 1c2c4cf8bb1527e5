/*
Package client provides a Go client library for the KeyCortex HTTP API.

The client package wraps the KeyCortex REST API with a convenient,
idiomatic Go interface. It handles request encoding, bearer-token
authentication, idempotency headers, error decoding, and provides
type-safe methods for every wallet, auth, integration and ops
operation.

# Architecture

The client provides a high-level interface to the KeyCortex API:

	┌──────────────────── APPLICATION CODE ──────────────────────┐
	│                                                             │
	│  import "github.com/veeringman/KeyCortex/pkg/client"       │
	│                                                             │
	│  kc := client.NewClient("http://localhost:8090")           │
	│  wallet, err := kc.CreateWallet("treasury")                │
	│                                                             │
	└──────────────────┬──────────────────────────────────────────┘
	                   │
	┌──────────────────▼──── pkg/client ─────────────────────────┐
	│                                                             │
	│  ┌──────────────────────────────────────────────┐          │
	│  │           Client Wrapper                     │          │
	│  │  - Typed methods over pkg/types wire structs │          │
	│  │  - Bearer token on every request             │          │
	│  │  - Idempotency-Key plumbing for submits      │          │
	│  │  - Uniform {"error": ...} decoding           │          │
	│  └──────────────────┬───────────────────────────┘          │
	│                     │                                       │
	│  ┌──────────────────▼───────────────────────────┐          │
	│  │         net/http Client (10s timeout)        │          │
	│  └──────────────────┬───────────────────────────┘          │
	└─────────────────────┼───────────────────────────────────────┘
	                      │ HTTP/JSON (port 8090)
	                      ▼
	              KeyCortex API Server

# Error Handling

Every non-2xx response is returned as an *APIError carrying the HTTP
status code and the service's error message:

	wallet, err := kc.CreateWallet("")
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		fmt.Printf("rejected: %s (HTTP %d)\n", apiErr.Message, apiErr.StatusCode)
	}

Transport failures (service unreachable, timeouts) are returned as
wrapped errors, not *APIError.

# Usage

Creating a client:

	kc := client.NewClient("http://localhost:8090")

Creating an authenticated client (for /auth/bind and /ops):

	kc := client.NewClientWithToken("http://localhost:8090", jwtToken)

Wallet lifecycle:

	wallet, err := kc.CreateWallet("treasury")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("address: %s\n", wallet.WalletAddress)

	restored, err := kc.RestoreWallet("correct horse battery staple", "")
	if restored.AlreadyExisted {
		fmt.Println("wallet was already custodied")
	}

Signing and submitting:

	sig, err := kc.Sign(wallet.WalletAddress,
		base64.StdEncoding.EncodeToString(payload), types.PurposeAuth)

	result, err := kc.Submit(types.WalletSubmitRequest{
		From:   wallet.WalletAddress,
		To:     "0xdeadbeef",
		Amount: "1000",
		Asset:  "FloweR",
		Chain:  "flowcortex-l1",
		Nonce:  1,
	}, "transfer-2026-001")

The second argument is the idempotency key: resubmitting with the same
key returns the recorded outcome instead of a nonce-replay error.

Challenge auth:

	ch, err := kc.Challenge()
	sig, err := kc.Sign(addr, base64.StdEncoding.EncodeToString([]byte(ch.Challenge)), types.PurposeAuth)
	verdict, err := kc.Verify(types.AuthVerifyRequest{
		WalletAddress: addr,
		Challenge:     ch.Challenge,
		Signature:     sig.Signature,
	})

Ops (requires ops-admin role in the token):

	binding, err := kc.GetBinding(addr)
	events, err := kc.ListAudit("auth_bind", "", "denied", 50)

# Concurrency

A Client is safe for concurrent use; it holds no per-request state
beyond the shared http.Client.
*/
package client
