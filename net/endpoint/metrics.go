package endpoint

import (
	"github.com/VictoriaMetrics/metrics"
)

// Transport counters, exposed over HTTP by the serve command via
// metrics.WritePrometheus. Live peers = accepted - closed.
var (
	metricPeersAccepted    = metrics.NewCounter("dtnet_peers_accepted_total")
	metricPeersClosed      = metrics.NewCounter("dtnet_peers_closed_total")
	metricMessagesSent     = metrics.NewCounter("dtnet_messages_sent_total")
	metricMessagesReceived = metrics.NewCounter("dtnet_messages_received_total")
	metricMessagesDropped  = metrics.NewCounter("dtnet_messages_dropped_total")
	metricQueriesServed    = metrics.NewCounter("dtnet_queries_served_total")
)
