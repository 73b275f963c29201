// openapi serves, validates and exports the OpenAPI description of the gateway API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gorilla/mux"
	"gopkg.in/yaml.v3"

	"product-strategy-gateway/internal/api"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: openapi <command>")
		fmt.Println("Commands:")
		fmt.Println("  serve          - Serve OpenAPI documentation")
		fmt.Println("  validate       - Validate the OpenAPI document")
		fmt.Println("  export [json]  - Write the document to stdout as YAML (default) or JSON")
		os.Exit(1)
	}

	switch command := os.Args[1]; command {
	case "serve":
		serveDocumentation()
	case "validate":
		validateSpec()
	case "export":
		format := "yaml"
		if len(os.Args) > 2 {
			format = os.Args[2]
		}
		if err := exportSpec(os.Stdout, format); err != nil {
			fmt.Fprintf(os.Stderr, "Export failed: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func newDocsRouter() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		doc, err := api.OpenAPIDocument(api.Version)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}).Methods(http.MethodGet)

	router.HandleFunc("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		if err := exportSpec(w, "yaml"); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}).Methods(http.MethodGet)

	router.HandleFunc("/docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(swaggerPage))
	}).Methods(http.MethodGet)

	router.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
	})

	return router
}

const swaggerPage = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <title>Product Strategy Gateway API</title>
    <link rel="stylesheet" href="https://cdn.jsdelivr.net/npm/swagger-ui-dist@4/swagger-ui.css">
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://cdn.jsdelivr.net/npm/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
        window.onload = function() {
            SwaggerUIBundle({url: "/openapi.json", dom_id: '#swagger-ui'});
        }
    </script>
</body>
</html>
`

func serveDocumentation() {
	port := os.Getenv("OPENAPI_PORT")
	if port == "" {
		port = "8081"
	}

	fmt.Printf("Serving OpenAPI documentation at http://localhost:%s/docs\n", port)
	srv := &http.Server{Addr: ":" + port, Handler: newDocsRouter(), ReadTimeout: 10 * time.Second, WriteTimeout: 10 * time.Second}
	log.Fatal(srv.ListenAndServe())
}

func validateSpec() {
	doc, err := api.OpenAPIDocument(api.Version)
	if err != nil {
		fmt.Printf("Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("OpenAPI document is valid")
	fmt.Printf("\nAPI Statistics:\n")
	fmt.Printf("- Paths: %d\n", doc.Paths.Len())
	fmt.Printf("- Schemas: %d\n", len(doc.Components.Schemas))
	fmt.Printf("- Operations: %d\n", countOperations(doc))
}

// exportSpec writes the document as YAML or JSON
func exportSpec(w io.Writer, format string) error {
	doc, err := api.OpenAPIDocument(api.Version)
	if err != nil {
		return err
	}
	data, err := doc.MarshalJSON()
	if err != nil {
		return err
	}

	switch format {
	case "json":
		_, err = w.Write(append(data, '\n'))
		return err
	case "yaml", "yml":
		var tree interface{}
		if err := json.Unmarshal(data, &tree); err != nil {
			return err
		}
		out, err := yaml.Marshal(tree)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	default:
		return fmt.Errorf("unknown format %q: use json or yaml", format)
	}
}

func countOperations(doc *openapi3.T) int {
	count := 0
	for _, pathItem := range doc.Paths.Map() {
		count += len(pathItem.Operations())
	}
	return count
}
