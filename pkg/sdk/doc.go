// Package oracle embeds the Night City retrieval core in a Go program.
//
// The client loads topic corpus snapshots (lore, timeline, slang), embeds a
// question with the caller's Embedder and returns the best supporting documents,
// ranked by vector distance with type-match and entity-overlap boosts.
//
//	client, _ := oracle.New(ctx,
//	    oracle.WithEmbedder(myEmbedder),
//	    oracle.WithFileCorpus("lore", oracle.FileSnapshot{
//	        Records: "lore_records.json",
//	        Vectors: "lore_vectors.bin",
//	    }),
//	    oracle.WithSQLiteCorpus("timeline", "timeline.db"),
//	)
//
//	answer, _ := client.Ask(ctx, "When did the Fourth Corporate War start?")
//	for _, r := range answer.Results {
//	    fmt.Println(r.Title, r.Score)
//	}
//
// Embedding failures and timeouts yield an empty answer, not an error; only
// invalid questions and caller cancellation are returned as errors.
package oracle
