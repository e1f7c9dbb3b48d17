package endpoint

import (
	"github.com/telemetrylab/dtnet/net/codec"
)

// dispatch interprets one decoded message against the telemetry store and
// the pending table and decides what, if anything, to send back.
func (e *Endpoint) dispatch(p *peer, msg codec.Message) {
	switch msg.Kind {
	case codec.KindClose:
		Logger.Infof("peer %s sent close notice", p.id)
		p.teardown()

	case codec.KindResponse:
		if !e.pending.Fill(msg.ResponseKey, msg.Values) {
			// late or foreign response, nothing is waiting for it
			Logger.Warningf("dropping response with unknown key %d from peer %s", msg.ResponseKey, p.id)
			metricMessagesDropped.Inc()
		}

	case codec.KindQuery:
		e.serveQuery(p, msg)
	}
}

// serveQuery answers a query from the telemetry store. A query that matches
// nothing produces no response at all; the asker times out instead.
func (e *Endpoint) serveQuery(p *peer, msg codec.Message) {
	values := e.collectValues(msg.Query)
	if len(values) == 0 {
		Logger.Debugf("query %d from peer %s matched nothing", msg.RequestKey, p.id)
		return
	}

	frame, err := e.cdc.Encode(codec.NewResponse(msg.RequestKey, values))
	if err != nil {
		Logger.Errorf("failed to encode response for peer %s: %v", p.id, err)
		return
	}

	metricQueriesServed.Inc()
	p.send(frame)
}

// collectValues resolves a query against the store: a leading total_data
// name requests the full snapshot, anything else is looked up by name and
// silently skipped when absent.
func (e *Endpoint) collectValues(query []string) map[string]any {
	values := make(map[string]any)

	if len(query) > 0 && query[0] == codec.QueryTotalData {
		values[codec.QueryTotalData] = e.store.Snapshot()
		return values
	}

	for _, name := range query {
		if value, ok := e.store.Get(name); ok {
			values[name] = value
		}
	}
	return values
}
