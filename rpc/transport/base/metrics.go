package base

import (
	"fmt"
	"github.com/ValentinKolb/udsrpc/rpc/common"
	vm "github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
)

// transportMetrics counts frames and bytes of one transport.
//
// Every event is recorded twice: in the process wide VictoriaMetrics set,
// which is exported in Prometheus format (see metrics.WritePrometheus), and in
// go-metrics instruments owned by the transport, which back Stats()
type transportMetrics struct {
	framesReceived   *vm.Counter
	framesDispatched *vm.Counter
	framesDropped    *vm.Counter
	framesWritten    *vm.Counter
	bytesRead        *vm.Counter
	bytesWritten     *vm.Counter
	frameSize        *vm.Histogram

	received   gometrics.Counter
	dispatched gometrics.Counter
	dropped    gometrics.Counter
	written    gometrics.Counter
	read       gometrics.Counter
	sent       gometrics.Counter
	sizes      gometrics.Histogram
}

// newTransportMetrics creates the instruments for the given role ("host" or "peer")
func newTransportMetrics(role string) *transportMetrics {
	name := func(metric string) string {
		return fmt.Sprintf(`udsrpc_%s{role=%q}`, metric, role)
	}

	return &transportMetrics{
		framesReceived:   vm.GetOrCreateCounter(name("frames_received_total")),
		framesDispatched: vm.GetOrCreateCounter(name("frames_dispatched_total")),
		framesDropped:    vm.GetOrCreateCounter(name("frames_dropped_total")),
		framesWritten:    vm.GetOrCreateCounter(name("frames_written_total")),
		bytesRead:        vm.GetOrCreateCounter(name("bytes_read_total")),
		bytesWritten:     vm.GetOrCreateCounter(name("bytes_written_total")),
		frameSize:        vm.GetOrCreateHistogram(name("frame_size_bytes")),

		received:   gometrics.NewCounter(),
		dispatched: gometrics.NewCounter(),
		dropped:    gometrics.NewCounter(),
		written:    gometrics.NewCounter(),
		read:       gometrics.NewCounter(),
		sent:       gometrics.NewCounter(),
		sizes:      gometrics.NewHistogram(gometrics.NewUniformSample(1028)),
	}
}

// chunkRead records n bytes read from the socket
func (m *transportMetrics) chunkRead(n int) {
	m.bytesRead.Add(n)
	m.read.Inc(int64(n))
}

// frameReceived records a complete inbound frame with a payload of n bytes
func (m *transportMetrics) frameReceived(n int) {
	m.framesReceived.Inc()
	m.frameSize.Update(float64(n))
	m.received.Inc(1)
	m.sizes.Update(int64(n))
}

// frameDispatched records a frame delivered to a callback or handler
func (m *transportMetrics) frameDispatched() {
	m.framesDispatched.Inc()
	m.dispatched.Inc(1)
}

// frameDropped records a frame without a matching registration
func (m *transportMetrics) frameDropped() {
	m.framesDropped.Inc()
	m.dropped.Inc(1)
}

// frameWritten records an outbound frame of n bytes including the header
func (m *transportMetrics) frameWritten(n int64) {
	m.framesWritten.Inc()
	m.bytesWritten.Add(int(n))
	m.written.Inc(1)
	m.sent.Inc(n)
}

// snapshot returns the counters owned by this transport
func (m *transportMetrics) snapshot(pending int) common.TransportStats {
	return common.TransportStats{
		FramesReceived:   m.received.Count(),
		FramesDispatched: m.dispatched.Count(),
		FramesDropped:    m.dropped.Count(),
		FramesWritten:    m.written.Count(),
		BytesRead:        m.read.Count(),
		BytesWritten:     m.sent.Count(),
		Pending:          pending,
		MeanFrameBytes:   m.sizes.Mean(),
		P99FrameBytes:    m.sizes.Percentile(0.99),
	}
}
