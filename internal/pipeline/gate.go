package pipeline

import (
	"net/http"

	dErrors "careshield/pkg/domain-errors"
	"careshield/pkg/httputil"
	"careshield/pkg/requestcontext"
)

// GateBlockedIPs rejects requests from blocked sources before anything else
// runs. The block list is checked on every request, so an IP blocked by
// incident response is rejected on its very next request.
func (p *Pipeline) GateBlockedIPs(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p.blocklist.IsBlocked(requestcontext.ClientIP(r.Context())) {
			if p.metrics != nil {
				p.metrics.BlockedIPRejections.Inc()
			}
			httputil.WriteError(w, dErrors.New(dErrors.CodeIPBlocked, "access denied"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
