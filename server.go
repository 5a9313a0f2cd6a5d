package templog

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MonitorServer is the optional live view of a running logger: the
// serial ports visible on the host, the most recent reading per
// channel, a WebSocket stream of readings and Prometheus metrics. It
// only observes; all control stays with the polling loop.
type MonitorServer struct {
	broker *Broker

	mu     sync.Mutex
	latest map[string]Sample
}

func NewMonitorServer(broker *Broker) *MonitorServer {
	return &MonitorServer{
		broker: broker,
		latest: map[string]Sample{},
	}
}

// Run serves until ctx is canceled.
func (m *MonitorServer) Run(ctx context.Context, addr string) error {
	go m.trackLatest(ctx)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/api/ports", m.handlePorts)
	r.GET("/api/latest", m.handleLatest)
	r.GET("/ws", m.handleWS)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{Addr: addr, Handler: r}
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (m *MonitorServer) trackLatest(ctx context.Context) {
	ch := m.broker.Subscribe()
	defer m.broker.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-ch:
			m.mu.Lock()
			m.latest[s.Device+"/"+s.Channel] = s
			m.mu.Unlock()
		}
	}
}

func (m *MonitorServer) handlePorts(c *gin.Context) {
	ports, err := ListPorts()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ports)
}

func (m *MonitorServer) handleLatest(c *gin.Context) {
	m.mu.Lock()
	out := make([]Sample, 0, len(m.latest))
	for _, s := range m.latest {
		out = append(out, s)
	}
	m.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Device != out[j].Device {
			return out[i].Device < out[j].Device
		}
		return out[i].Channel < out[j].Channel
	})
	c.JSON(http.StatusOK, out)
}
