// Command w3gweb serves a small replay inspector: POST a .w3g file to
// /api/inspect and get the decoded summary back as JSON. Summaries are
// cached by content digest so re-uploads of the same replay are free.
package main

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	w3g "github.com/kelindar/w3g-sdk"
)

// maxUpload bounds the request body; real replays are a few megabytes.
const maxUpload = 32 << 20

var (
	cache *lru.Cache[string, []byte]
	log   = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
)

type errorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type inspectResponse struct {
	OK     bool        `json:"ok"`
	Error  *errorInfo  `json:"error,omitempty"`
	Replay *w3g.Replay `json:"replay,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	var err error
	cache, err = lru.New[string, []byte](256)
	if err != nil {
		log.Fatal().Err(err).Msg("could not create the summary cache")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
	}))

	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	r.POST("/api/inspect", handleInspect)

	r.GET("/", func(c *gin.Context) {
		c.Data(200, "text/html", []byte(indexHTML))
	})

	fmt.Printf("http://127.0.0.1:%s\n", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func handleInspect(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpload+1))
	if err != nil {
		respondError(c, "INVALID_REQUEST", "failed to read request body")
		return
	}
	if len(body) == 0 {
		respondError(c, "INVALID_REQUEST", "empty request body")
		return
	}
	if len(body) > maxUpload {
		respondError(c, "TOO_LARGE", "replay exceeds the upload limit")
		return
	}

	digest := fmt.Sprintf("%x", sha256.Sum256(body))
	if summary, ok := cache.Get(digest); ok {
		c.Data(200, "application/json", summary)
		return
	}

	run := ulid.Make().String()
	replay, err := w3g.Decode(body)
	if err != nil {
		log.Warn().Str("run", run).Err(err).Msg("inspect failed")
		respondError(c, codeFor(err), err.Error())
		return
	}
	log.Info().
		Str("run", run).
		Int("bytes", len(body)).
		Str("game", replay.GameName).
		Int("players", len(replay.Players)).
		Msg("replay inspected")

	summary, err := json.Marshal(inspectResponse{OK: true, Replay: replay})
	if err != nil {
		respondError(c, "ENCODE_ERROR", "failed to encode summary")
		return
	}
	cache.Add(digest, summary)
	c.Data(200, "application/json", summary)
}

func respondError(c *gin.Context, code, message string) {
	c.JSON(400, inspectResponse{
		OK:    false,
		Error: &errorInfo{Code: code, Message: message},
	})
}

// codeFor folds the decode error taxonomy into coarse API codes.
func codeFor(err error) string {
	switch {
	case errors.Is(err, w3g.ErrInvalidHeader),
		errors.Is(err, w3g.ErrUnsupportedVersion),
		errors.Is(err, w3g.ErrInvalidSubHeader):
		return "INVALID_CONTAINER"
	case errors.Is(err, w3g.ErrSinglePlayerCheat):
		return "UNSUPPORTED_REPLAY"
	default:
		return "DECODE_ERROR"
	}
}

const indexHTML = `<!DOCTYPE html>
<html>
<head>
    <title>W3G Inspector</title>
    <style>
        body { font-family: Arial, sans-serif; max-width: 800px; margin: 50px auto; padding: 20px; }
        h1 { color: #1a6ef7; }
        button { background: #1a6ef7; color: white; padding: 10px 20px; border: none; cursor: pointer; }
        pre { background: #f5f5f5; padding: 15px; overflow-x: auto; }
    </style>
</head>
<body>
    <h1>W3G Inspector</h1>
    <p>Pick a Warcraft III replay file:</p>
    <input type="file" id="input" accept=".w3g">
    <button onclick="inspect()">Inspect</button>
    <h2>Result:</h2>
    <pre id="output">Results will appear here...</pre>

    <script>
        async function inspect() {
            const files = document.getElementById('input').files;
            const output = document.getElementById('output');
            if (!files.length) {
                output.textContent = 'Pick a file first.';
                return;
            }
            try {
                const response = await fetch('/api/inspect', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/octet-stream'},
                    body: files[0]
                });
                const result = await response.json();
                output.textContent = JSON.stringify(result, null, 2);
            } catch (err) {
                output.textContent = 'Error: ' + err.message;
            }
        }
    </script>
</body>
</html>`
