package monitoring

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/dirsim/controller"
	"github.com/sarchlab/dirsim/simulator"
)

func get(m *Monitor, url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, url, nil)

	m.Router().ServeHTTP(rec, req)

	return rec
}

func decode[T any](rec *httptest.ResponseRecorder) T {
	var v T
	err := json.Unmarshal(rec.Body.Bytes(), &v)
	Expect(err).ToNot(HaveOccurred())

	return v
}

var _ = Describe("Monitor", func() {
	var (
		s *simulator.Simulator
		m *Monitor
	)

	BeforeEach(func() {
		s = simulator.New(controller.New(4, 16, 64, 2))
		m = NewMonitor()
		m.RegisterSimulator(s)

		for pid := uint32(0); pid < s.NumProcessors(); pid++ {
			Expect(s.AttachProcessor(pid)).To(Succeed())
		}

		_, err := s.OnAccess(0, 0x1000, true)
		Expect(err).ToNot(HaveOccurred())
		_, err = s.OnAccess(1, 0x1000, false)
		Expect(err).ToNot(HaveOccurred())
	})

	AfterEach(func() {
		m.StopServer()
	})

	It("should reject small port numbers", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(BeZero())

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should answer 503 without a simulator", func() {
		m.StopServer()
		m = NewMonitor()

		rec := get(m, "/api/summary")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(m.BroadcastStats()).To(BeFalse())
	})

	It("should serve the report", func() {
		rec := get(m, "/api/report")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(s.Report()))
	})

	It("should summarize all the processors", func() {
		rec := get(m, "/api/summary")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := decode[SummaryRsp](rec)
		Expect(rsp.NumProcessors).To(Equal(uint32(4)))
		Expect(rsp.Accesses).To(Equal(uint64(2)))
		Expect(rsp.Hits).To(BeZero())
		Expect(rsp.Misses).To(Equal(uint64(2)))
		Expect(rsp.HitRate).To(BeZero())
		Expect(rsp.TotalCycles).To(Equal(uint64(313)))
		Expect(rsp.TotalHops).To(Equal(uint64(2)))
		Expect(rsp.MeanCycles).To(BeNumerically("~", 78.25))
		Expect(rsp.StdDevCycles).To(BeNumerically(">", 0))
		Expect(rsp.DirectoryLines).To(Equal(1))
		Expect(rsp.Detector).To(BeFalse())
	})

	It("should list the processors", func() {
		s.Attach()

		rec := get(m, "/api/processors")

		rsp := decode[[]ProcessorRsp](rec)
		Expect(rsp).To(HaveLen(4))
		Expect(rsp[0].Attached).To(Equal(2))
		Expect(rsp[1].Attached).To(Equal(1))
		Expect(rsp[0].Cycles).To(Equal(uint64(103)))
		Expect(rsp[0].CachedLines).To(Equal(1))
		Expect(rsp[1].Misses).To(Equal(uint64(1)))
		Expect(rsp[1].Cycles).To(Equal(uint64(210)))
		Expect(rsp[1].Hops).To(Equal(uint64(2)))
		Expect(rsp[2].CachedLines).To(BeZero())
	})

	It("should describe a directory line", func() {
		rec := get(m, "/api/directory/0x1008")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := decode[DirectoryLineRsp](rec)
		Expect(rsp.Address).To(Equal("0x1000"))
		Expect(rsp.Home).To(Equal(uint32(0)))
		Expect(rsp.State).To(Equal("Shared"))
		Expect(rsp.Sharers).To(Equal([]uint32{0, 1}))
		Expect(rsp.Owner).To(BeNil())
		Expect(rsp.LastWriter).ToNot(BeNil())
		Expect(*rsp.LastWriter).To(Equal(uint32(0)))
	})

	It("should report the owner of a modified line", func() {
		_, err := s.OnAccess(2, 0x2000, true)
		Expect(err).ToNot(HaveOccurred())

		rsp := decode[DirectoryLineRsp](get(m, "/api/directory/8192"))

		Expect(rsp.State).To(Equal("Modified"))
		Expect(rsp.Owner).ToNot(BeNil())
		Expect(*rsp.Owner).To(Equal(uint32(2)))
	})

	It("should not find unknown lines", func() {
		Expect(get(m, "/api/directory/0x4000").Code).
			To(Equal(http.StatusNotFound))
		Expect(get(m, "/api/directory/xyz").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should serialize a cache", func() {
		rec := get(m, "/api/cache/1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(json.Valid(rec.Body.Bytes())).To(BeTrue())
	})

	It("should not find unknown caches", func() {
		Expect(get(m, "/api/cache/4").Code).To(Equal(http.StatusNotFound))
		Expect(get(m, "/api/cache/a").Code).To(Equal(http.StatusNotFound))
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("replay", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		rsp := decode[[]ProgressView](get(m, "/api/progress"))

		Expect(rsp).To(HaveLen(1))
		Expect(rsp[0].ID).To(Equal(bar.ID))
		Expect(rsp[0].Name).To(Equal("replay"))
		Expect(rsp[0].Total).To(Equal(uint64(10)))
		Expect(rsp[0].Finished).To(Equal(uint64(3)))
		Expect(rsp[0].InProgress).To(Equal(uint64(1)))

		m.CompleteProgressBar(bar)

		Expect(decode[[]ProgressView](get(m, "/api/progress"))).To(BeEmpty())
	})

	It("should report the resources of the process", func() {
		rec := get(m, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := decode[resourceRsp](rec)
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should end the stats hub when stopped", func() {
		m.StopServer()

		Eventually(m.hub.exited).Should(BeClosed())
		Expect(m.BroadcastStats()).To(BeFalse())

		m.StopServer()
	})

	It("should serve the dashboard", func() {
		rec := get(m, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("/ws/stats"))
	})

	Context("when streaming statistics", func() {
		var (
			server *httptest.Server
			conn   *websocket.Conn
		)

		BeforeEach(func() {
			server = httptest.NewServer(m.Router())

			url := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/stats"

			var err error
			conn, _, err = websocket.DefaultDialer.Dial(url, nil)
			Expect(err).ToNot(HaveOccurred())
		})

		AfterEach(func() {
			conn.Close()
			server.Close()
		})

		readSummary := func() SummaryRsp {
			err := conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			Expect(err).ToNot(HaveOccurred())

			_, msg, err := conn.ReadMessage()
			Expect(err).ToNot(HaveOccurred())

			var rsp SummaryRsp
			Expect(json.Unmarshal(msg, &rsp)).To(Succeed())

			return rsp
		}

		It("should send the summary on connect", func() {
			Expect(readSummary().Accesses).To(Equal(uint64(2)))
		})

		It("should disconnect the clients when stopped", func() {
			Expect(readSummary().Accesses).To(Equal(uint64(2)))

			m.StopServer()

			err := conn.SetReadDeadline(time.Now().Add(5 * time.Second))
			Expect(err).ToNot(HaveOccurred())

			_, _, err = conn.ReadMessage()
			Expect(err).To(HaveOccurred())
		})

		It("should push new summaries", func() {
			Expect(readSummary().Accesses).To(Equal(uint64(2)))

			_, err := s.OnAccess(2, 0x1000, false)
			Expect(err).ToNot(HaveOccurred())

			done := make(chan struct{})
			defer close(done)

			go func() {
				ticker := time.NewTicker(10 * time.Millisecond)
				defer ticker.Stop()

				for {
					select {
					case <-done:
						return
					case <-ticker.C:
						m.BroadcastStats()
					}
				}
			}()

			Expect(readSummary().Accesses).To(Equal(uint64(3)))
		})
	})
})
