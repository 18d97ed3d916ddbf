// Package vecrag is a Go client for the vecrag HTTP API: upload documents
// into named collections, list and drop collections, and stream grounded
// answers.
//
//	client, _ := vecrag.New("http://localhost:8000", vecrag.WithAPIKey(key))
//	_, _ = client.UploadText(ctx, "animals", "Cats are mammals. Dogs are mammals too.")
//
//	stream, _ := client.Chat(ctx, "animals", "Are dogs mammals?", 1)
//	defer stream.Close()
//	for {
//	    ev, err := stream.Recv()
//	    if err == io.EOF {
//	        break
//	    }
//	    ...
//	}
//
// Answer collects a whole stream and reports an interrupted generation as
// ErrIncompleteAnswer.
package vecrag
