// Package catalog composes discovery, tool generation, ranking and usage
// tracking into one service over a shared document store.
//
// A typical flow onboards an API and later searches for it:
//
//	svc, err := catalog.New(catalog.Options{Store: store.NewMemoryStore()})
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	res, err := svc.Onboard(ctx, "https://api.example.com")
//	...
//	results, err := svc.Search(ctx, "send an sms", 5)
//
// Onboard discovers the API, persists the discovery record, generates the
// tool once per source URL and stores its description embedding so the
// tool becomes searchable. With SkipIndex set nothing is written and only
// a previously stored catalog is consulted.
package catalog
