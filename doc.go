// Package napstore provides an embeddable license-storefront engine for Go
// applications.
//
// napstore is designed as a library, not a service. Import it directly into
// your Go application and wire it to a store. It provides:
//
//   - A prepaid balance ledger with an append-only transaction log
//   - Deposit lifecycle management with bank-transfer reconciliation
//     driven by payment-gateway webhooks
//   - License issuance, purchase, renewal and revocation with hardware
//     fingerprint binding
//   - An admin reconciliation surface (manual confirm/reject, balance
//     adjustments, revenue stats)
//   - Pluggable lifecycle hooks (Telegram notifications, audit trail,
//     metrics)
//
// # Quick Start
//
// Create an engine with your preferred store:
//
//	import (
//	    "github.com/phamhp/napstore"
//	    "github.com/phamhp/napstore/store/memory"
//	)
//
//	// Initialize store (use the mongo driver in production)
//	st := memory.New()
//
//	// Create the engine
//	eng := napstore.New(st)
//
//	// Start the engine (runs migrations, seeds the catalog, starts
//	// background workers)
//	if err := eng.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer eng.Stop()
//
// # Core Concepts
//
// Users hold a prepaid balance in Vietnamese dong, topped up by bank
// transfer:
//
//	dep, err := eng.CreateDeposit(ctx, userID, 200_000)
//
// The payment gateway calls the webhook when the transfer lands; the
// reconciler matches the transfer reference and credits the balance:
//
//	result, err := eng.Reconcile(ctx, &notification)
//
// Licenses are bought from the balance and bound to a hardware
// fingerprint:
//
//	lic, err := eng.Purchase(ctx, userID, "regfb", license.PlanMonthly)
//	lic, err = eng.BindHardwareID(ctx, lic.ID, hwid)
//
// Client tools validate their key on launch:
//
//	check, err := eng.Validate(ctx, key, hwid)
//	if check.Valid {
//	    // run
//	}
//
// # Consistency
//
// Every money-moving operation lands atomically with its ledger entry:
// a settled deposit, the balance credit and the transaction record are
// a single store operation, so a replayed webhook can never
// double-credit and the sum of a user's entries always equals their
// balance.
//
// All monetary amounts are integer dong (VND has no minor unit).
//
// # TypeID
//
// All entities use TypeID for globally unique, type-safe identifiers:
//
//	user_01h2xcejqtf2nbrexx3vqjhp41 // User ID
//	dep_01h2xcejqtf2nbrexx3vqjhp41  // Deposit ID
//	lic_01h455vb4pex5vsknk084sn02q  // License ID
//
// TypeIDs are K-sortable, making them ideal for database indexes and
// providing natural time-ordering of entities.
package napstore
