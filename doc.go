// Package analyst answers questions about a 10-K filing corpus held in
// Valkey or Redis with the search module.
//
// A question is handed to a tool-calling language model. Each search the
// model requests runs a hybrid query: vector KNN and BM25 ranked lists are
// merged with reciprocal rank fusion. The model sees the top chunks and either
// searches again or answers.
//
//	client, err := analyst.New(ctx,
//	    analyst.WithValkey("localhost:6379", ""),
//	    analyst.WithOpenAI(os.Getenv("OPENAI_API_KEY"), ""),
//	    analyst.WithModel("gpt-4o"),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	ans, err := client.Ask(ctx, "What was total revenue in fiscal 2024?")
//	fmt.Println(ans.State, ans.Text)
package analyst
