// Package respool manages a shared pool of single-use resource handles.
// Many independent processes can each take exclusive ownership of one record
// without a central arbiter: a record moves from Available to InUse only
// through a version-checked conditional update in the backing store, so of
// any number of concurrent acquirers exactly one wins.
//
// Records live in a Store. PostgreSQL (NewPostgresStore, or a Manager),
// NATS JetStream key-value buckets (NewNATSStore) and an in-process store
// (NewMemoryStore) are provided; any store with compare-and-swap writes can
// implement the interface.
//
// Setup:
//
// Before using the PostgreSQL store, create the table once:
//
//	dbPool, err := pgxpool.New(ctx, databaseURL)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer dbPool.Close()
//
//	manager, err := respool.Setup(ctx, dbPool)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer manager.Close()
//
// Basic usage:
//
//	pool, err := manager.Open(ctx, respool.Config{
//		GroupKey:         "banana-pool",
//		MinimumAvailable: 10,
//		Buffer:           2,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// Take any available record
//	record, err := pool.AllocateRandom(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Using resource %s\n", record.ID)
//
// Acquired records are never returned to the pool. Instead the pool is
// replenished: after each acquisition a Refiller tops the available count
// back up to MinimumAvailable plus Buffer.
package respool
