package app

import (
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	gosync "sync"

	"github.com/sirupsen/logrus"
)

// Router receives navigation requests from the feed. It remembers the
// last destination for display and, when enabled, opens it in the
// system browser. It is called from command goroutines, so it locks.
type Router struct {
	mu      gosync.Mutex
	last    string
	visited int
	site    *url.URL
	open    bool
	opener  func(target string) error
	log     logrus.FieldLogger
}

// NewRouter creates a Router. Relative links are resolved against the
// scheme and host of siteURL.
func NewRouter(siteURL string, openLinks bool, log logrus.FieldLogger) *Router {
	if log == nil {
		log = logrus.StandardLogger()
	}
	r := &Router{
		open:   openLinks,
		opener: openBrowser,
		log:    log,
	}
	if u, err := url.Parse(siteURL); err == nil && u.Host != "" {
		r.site = &url.URL{Scheme: u.Scheme, Host: u.Host}
	}
	return r
}

// Navigate records link as the current destination.
func (r *Router) Navigate(link string) {
	target := r.Resolve(link)

	r.mu.Lock()
	r.last = target
	r.visited++
	open, opener := r.open, r.opener
	r.mu.Unlock()

	r.log.WithField("link", target).Info("navigate")

	if !open || target == "" {
		return
	}
	if !browsable(target) {
		r.log.WithField("link", target).Warn("not opening non-web link")
		return
	}
	if err := opener(target); err != nil {
		r.log.WithError(err).WithField("link", target).Warn("open browser")
	}
}

// Last returns the most recent destination and how many navigations
// have happened.
func (r *Router) Last() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.last, r.visited
}

// Resolve turns a site-relative link into an absolute URL when a site
// root is known. Absolute and unparsable links are returned unchanged.
func (r *Router) Resolve(link string) string {
	link = strings.TrimSpace(link)
	if r.site == nil || link == "" {
		return link
	}
	ref, err := url.Parse(link)
	if err != nil || ref.IsAbs() {
		return link
	}
	return r.site.ResolveReference(ref).String()
}

// browsable reports whether target is an absolute http(s) URL. Anything
// else never reaches the system opener.
func browsable(target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func openBrowser(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}
