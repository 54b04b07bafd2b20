// Package assetsync keeps a local cache of versioned web assets in step with
// a remote manifest and applies them, in manifest order, to a render surface.
//
// A run resolves the manifest, diffs it against the hashes of previously
// synchronized files, fetches and verifies the stale files with bounded
// concurrency, persists them, and then applies every node strictly one at a
// time: from the cache when the file is stored locally, by reference
// otherwise.
//
// Basic usage:
//
//	doc := htmldoc.New(nil)
//	l, _ := assetsync.New("https://cdn.example.com/app/manifest.json",
//	    assetsync.WithSurface(doc),
//	    assetsync.WithObserver(func(ev assetsync.Event) {
//	        if p, ok := ev.(assetsync.Progress); ok {
//	            fmt.Printf("%d/%d\n", p.Loaded, p.Total)
//	        }
//	    }),
//	)
//	if err := l.Run(ctx); err != nil {
//	    // err matches ErrManifestIncompatible, ErrSyncAborted, ...
//	}
//
// With configuration and an on-disk cache:
//
//	cfg, _ := config.Load(config.NewViper())
//	l, _ := assetsync.Open(cfg, assetsync.WithSurface(doc))
//	defer l.Close()
//	_ = l.Run(ctx)
//
// A Loader runs once. Start a new one to load again; files that did not
// change since the previous run are not fetched.
package assetsync
