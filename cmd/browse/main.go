package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Clark-Hu/moviebrowse/internal/browse"
	"github.com/Clark-Hu/moviebrowse/internal/catalog"
	"github.com/Clark-Hu/moviebrowse/internal/config"
	"github.com/Clark-Hu/moviebrowse/internal/domain"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	var (
		baseURL  = flag.String("url", cfg.CatalogURL, "movie service base URL")
		search   = flag.String("search", "", "search term forwarded to the movie service")
		debounce = flag.Duration("debounce", time.Duration(cfg.DebounceMillis)*time.Millisecond, "idle time before a query change is applied (0 uses the default)")
		window   = flag.Int("window", cfg.DisplayLimit, "number of movies shown at once")
		verbose  = flag.Bool("v", false, "log fetch failures to stderr")
	)
	flag.Parse()

	logger := log.New(io.Discard, "", 0)
	if *verbose {
		logger = log.New(os.Stderr, "[browse] ", log.LstdFlags)
	}

	client, err := catalog.NewHTTPClient(*baseURL, catalog.Options{
		Timeout:  time.Duration(cfg.CatalogTimeoutSecs) * time.Second,
		RetryMax: cfg.CatalogRetryMax,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf("init catalog client: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := newScreen(os.Stdout)
	session := browse.NewSession(client, browse.Options{
		Search:   *search,
		Window:   *window,
		Debounce: *debounce,
		Logger:   logger,
		OnChange: out.render,
	})
	defer session.Close()

	out.help()
	go load(ctx, session.Load)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if quit := handleLine(ctx, session, out, line); quit {
				return
			}
		}
	}
}

// handleLine runs one line of input and reports whether to quit.
func handleLine(ctx context.Context, session *browse.Session, out *screen, line string) bool {
	if !strings.HasPrefix(line, ":") {
		session.SetQuery(line)
		return false
	}

	cmd, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "q", "quit":
		return true
	case "genre":
		if arg == "" {
			session.SetGenre(nil)
			return false
		}
		session.ToggleGenre(arg)
	case "genres":
		out.genres(session.View().Criteria.Genre)
	case "open":
		if arg == "" {
			out.printf("usage: :open <id>\n")
			return false
		}
		go func() {
			movie, err := session.Details(ctx, domain.MovieID(arg))
			if err != nil {
				if reportable(err) {
					out.printf("%s\n", catalog.UserMessage(err))
				}
				return
			}
			out.details(movie)
		}()
	case "retry", "reload":
		go load(ctx, session.Retry)
	case "now":
		session.Refilter()
	case "help", "?":
		out.help()
	default:
		out.printf("unknown command :%s (try :help)\n", cmd)
	}
	return false
}

// reportable is false for failures caused by shutting down rather than by the
// movie service.
func reportable(err error) bool {
	if errors.Is(err, browse.ErrClosed) {
		return false
	}
	var fe *catalog.FetchError
	if errors.As(err, &fe) && fe.Canceled() {
		return false
	}
	return true
}

// load runs a fetch; failures reach the user through the error view.
func load(ctx context.Context, fn func(context.Context) error) {
	_ = fn(ctx)
}
