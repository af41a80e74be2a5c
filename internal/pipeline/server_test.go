package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/summitos/summit-sync/internal/agents"
	"github.com/summitos/summit-sync/internal/artifact"
	"github.com/summitos/summit-sync/internal/match"
	"github.com/summitos/summit-sync/internal/ratelimit"
	"github.com/summitos/summit-sync/internal/scanning"
	"github.com/summitos/summit-sync/internal/trip"
)

// mockSweeper is a mock implementation of Sweeper
type mockSweeper struct {
	linked int
	err    error
	calls  int
}

func (m *mockSweeper) Sweep(ctx context.Context) (int, error) {
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	return m.linked, nil
}

var _ = Describe("Server", func() {
	var (
		db          *mockDB
		extractor   *mockExtractor
		service     *Service
		sweeper     *mockSweeper
		auth        BasicAuth
		limiter     *ratelimit.Limiter
		server      *Server
		ghttpServer *ghttp.Server
	)

	newService := func() *Service {
		matcher := match.NewEngine(&mockProvider{}, nil, match.DefaultConfig())
		orchestrator := agents.NewOrchestrator(agents.DefaultEVConfig(), nil, 2)
		router, err := artifact.NewRouter(filepath.Join(GinkgoT().TempDir(), "artifacts"))
		Expect(err).NotTo(HaveOccurred())
		return NewServiceWithDeps(db, extractor, matcher, orchestrator, router,
			time.UTC, &mockIDGenerator{id: "T100"}, &mockTimeSource{now: time.Now()})
	}

	setupServer := func(handlers int) {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
		server = NewServerWithMux(service, sweeper, auth, limiter, http.NewServeMux())
		ghttpServer = ghttp.NewServer()
		for i := 0; i < handlers; i++ {
			ghttpServer.AppendHandlers(server.ServeHTTP)
		}
	}

	uploadRequest := func(url string) (*http.Response, error) {
		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		part, err := writer.CreateFormFile("file", "Screenshot_20260202_115809.jpg")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("fake image data"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.Close()).To(Succeed())

		req, err := http.NewRequest("POST", url, &buf)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())
		return http.DefaultClient.Do(req)
	}

	BeforeEach(func() {
		db = newMockDB()
		extractor = &mockExtractor{text: "Uber Trip Detail\nRider payment $25.43\nYour earnings $18.50\n5.2 mi\n18 min"}
		sweeper = &mockSweeper{linked: 3}
		auth = BasicAuth{}
		limiter = nil
		service = newService()
		setupServer(1)
	})

	AfterEach(func() {
		if ghttpServer != nil {
			ghttpServer.Close()
		}
	})

	Describe("handleHealth", func() {
		It("should return status OK", func() {
			resp, err := http.Get(ghttpServer.URL() + "/health")
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			resp.Body.Close()
		})
	})

	Describe("handleTrips", func() {
		When("listing trips", func() {
			BeforeEach(func() {
				db.trips["T1"] = &trip.TripRecord{ID: "T1"}
				db.trips["T2"] = &trip.TripRecord{ID: "T2"}
			})

			It("should return all trips as JSON", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/trips")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(resp.Header.Get("Content-Type")).To(Equal("application/json"))

				var trips []*trip.TripRecord
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &trips)).NotTo(HaveOccurred())
				Expect(trips).To(HaveLen(2))
			})
		})

		When("uploading a capture", func() {
			It("should return status Created with the processed record", func() {
				resp, err := uploadRequest(ghttpServer.URL() + "/api/trips")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))

				var rec trip.TripRecord
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &rec)).NotTo(HaveOccurred())
				Expect(rec.ID).To(Equal("T100"))
				Expect(rec.Receipt.Category).To(Equal(trip.CategoryUberCore))
			})
		})

		When("no file is provided", func() {
			It("should return status Bad Request", func() {
				var buf bytes.Buffer
				writer := multipart.NewWriter(&buf)
				Expect(writer.Close()).To(Succeed())

				req, err := http.NewRequest("POST", ghttpServer.URL()+"/api/trips", &buf)
				Expect(err).NotTo(HaveOccurred())
				req.Header.Set("Content-Type", writer.FormDataContentType())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				resp.Body.Close()
			})
		})

		When("the image has no readable text", func() {
			BeforeEach(func() {
				extractor.err = scanning.ErrExtractionEmpty
			})

			It("should return status Unprocessable Entity", func() {
				resp, err := uploadRequest(ghttpServer.URL() + "/api/trips")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnprocessableEntity))
				resp.Body.Close()
			})
		})

		When("request method is not GET or POST", func() {
			It("should return status Method Not Allowed", func() {
				req, err := http.NewRequest("DELETE", ghttpServer.URL()+"/api/trips", nil)
				Expect(err).NotTo(HaveOccurred())
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
				resp.Body.Close()
			})
		})

		When("the rate limit is exceeded", func() {
			BeforeEach(func() {
				limiter = ratelimit.NewLimiter(1)
				setupServer(2)
			})

			It("should return status Too Many Requests", func() {
				resp, err := uploadRequest(ghttpServer.URL() + "/api/trips")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
				resp.Body.Close()

				resp, err = uploadRequest(ghttpServer.URL() + "/api/trips")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusTooManyRequests))
				resp.Body.Close()
			})
		})
	})

	Describe("handleTripByID", func() {
		When("the trip exists", func() {
			BeforeEach(func() {
				db.trips["T1"] = &trip.TripRecord{ID: "T1"}
			})

			It("should return the trip", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/trips/T1")
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))

				var rec trip.TripRecord
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &rec)).NotTo(HaveOccurred())
				Expect(rec.ID).To(Equal("T1"))
			})
		})

		When("the trip does not exist", func() {
			It("should return status Not Found", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/trips/missing")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
				resp.Body.Close()
			})
		})
	})

	Describe("handleReconcile", func() {
		When("the sweep succeeds", func() {
			It("should return the link count", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/reconcile", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				Expect(sweeper.calls).To(Equal(1))

				var result map[string]int
				body, err := io.ReadAll(resp.Body)
				Expect(err).NotTo(HaveOccurred())
				Expect(json.Unmarshal(body, &result)).NotTo(HaveOccurred())
				Expect(result["linked"]).To(Equal(3))
			})
		})

		When("the sweep fails", func() {
			BeforeEach(func() {
				sweeper.err = errors.New("sweep error")
			})

			It("should return status Internal Server Error", func() {
				resp, err := http.Post(ghttpServer.URL()+"/api/reconcile", "application/json", nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
				resp.Body.Close()
			})
		})

		When("request method is GET", func() {
			It("should return status Method Not Allowed", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/reconcile")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
				resp.Body.Close()
			})
		})
	})

	Describe("authentication", func() {
		BeforeEach(func() {
			auth = BasicAuth{Username: "admin", Password: "secret"}
			setupServer(1)
		})

		When("credentials are missing", func() {
			It("should return status Unauthorized", func() {
				resp, err := http.Get(ghttpServer.URL() + "/api/trips")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
				resp.Body.Close()
			})
		})

		When("credentials are valid", func() {
			It("should return status OK", func() {
				req, err := http.NewRequest("GET", ghttpServer.URL()+"/api/trips", nil)
				Expect(err).NotTo(HaveOccurred())
				credentials := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
				req.Header.Set("Authorization", "Basic "+credentials)
				resp, err := http.DefaultClient.Do(req)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})

		When("the health endpoint is hit", func() {
			It("should not require credentials", func() {
				resp, err := http.Get(ghttpServer.URL() + "/health")
				Expect(err).NotTo(HaveOccurred())
				Expect(resp.StatusCode).To(Equal(http.StatusOK))
				resp.Body.Close()
			})
		})
	})

	Describe("CORS", func() {
		It("should answer preflight requests", func() {
			req, err := http.NewRequest("OPTIONS", ghttpServer.URL()+"/api/trips", nil)
			Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			resp.Body.Close()
		})
	})
})
