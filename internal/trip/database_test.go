package trip

import (
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/summitos/summit-sync/internal/telemetry"
)

var _ = Describe("BoltDB", func() {
	var (
		tmpDir string
		dbPath string
		db     *BoltDB
	)

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
		dbPath = filepath.Join(tmpDir, "test.db")
		var err error
		db, err = NewBoltDB(dbPath)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	newRecord := func(id string) *TripRecord {
		return &TripRecord{
			ID: id,
			Receipt: ReceiptEvent{
				EventID:     id + ".jpg",
				CaptureTime: time.Date(2026, 2, 2, 11, 58, 9, 0, time.UTC),
				Category:    CategoryUberCore,
			},
			SourceRef: id + ".jpg",
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
	}

	Describe("SaveTrip", func() {
		var (
			rec *TripRecord
			err error
		)

		BeforeEach(func() {
			rec = newRecord("T100")
		})

		JustBeforeEach(func() {
			err = db.SaveTrip(rec)
		})

		When("saving succeeds", func() {
			It("should not return an error", func() {
				Expect(err).NotTo(HaveOccurred())
			})

			It("should save the trip to the database", func() {
				saved, getErr := db.GetTrip("T100")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.ID).To(Equal("T100"))
				Expect(saved.Receipt.Category).To(Equal(CategoryUberCore))
			})
		})

		When("the trip already exists", func() {
			BeforeEach(func() {
				existing := newRecord("T100")
				existing.Receipt.Category = CategoryUnknown
				Expect(db.SaveTrip(existing)).To(Succeed())
			})

			It("overwrites the stored version", func() {
				saved, getErr := db.GetTrip("T100")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Receipt.Category).To(Equal(CategoryUberCore))
			})
		})
	})

	Describe("GetTrip", func() {
		When("the trip does not exist", func() {
			It("returns an error", func() {
				_, err := db.GetTrip("missing")
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("ListTrips", func() {
		When("the database is empty", func() {
			It("returns an empty slice", func() {
				trips, err := db.ListTrips()
				Expect(err).NotTo(HaveOccurred())
				Expect(trips).To(BeEmpty())
			})
		})

		When("trips exist", func() {
			BeforeEach(func() {
				Expect(db.SaveTrip(newRecord("T1"))).To(Succeed())
				Expect(db.SaveTrip(newRecord("T2"))).To(Succeed())
			})

			It("returns all of them", func() {
				trips, err := db.ListTrips()
				Expect(err).NotTo(HaveOccurred())
				Expect(trips).To(HaveLen(2))
			})
		})
	})

	Describe("BindDrive", func() {
		var (
			seg    *telemetry.DriveSegment
			now    time.Time
			result BindResult
			err    error
		)

		BeforeEach(func() {
			seg = &telemetry.DriveSegment{
				ID:            987,
				StartedAt:     time.Date(2026, 2, 2, 11, 30, 0, 0, time.UTC).Unix(),
				EndedAt:       time.Date(2026, 2, 2, 11, 55, 0, 0, time.UTC).Unix(),
				DistanceMiles: 5.2,
			}
			now = time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
			Expect(db.SaveTrip(newRecord("T100"))).To(Succeed())
		})

		JustBeforeEach(func() {
			result, err = db.BindDrive("T100", seg, now)
		})

		When("the trip is unbound and the drive is unclaimed", func() {
			It("binds the drive", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(Equal(BindBound))
			})

			It("persists the drive on the trip", func() {
				saved, getErr := db.GetTrip("T100")
				Expect(getErr).NotTo(HaveOccurred())
				Expect(saved.Drive).NotTo(BeNil())
				Expect(saved.Drive.ID).To(Equal(int64(987)))
			})

			It("stamps the update time", func() {
				saved, _ := db.GetTrip("T100")
				Expect(saved.UpdatedAt.Equal(now)).To(BeTrue())
			})
		})

		When("the trip is already bound", func() {
			BeforeEach(func() {
				_, bindErr := db.BindDrive("T100", &telemetry.DriveSegment{ID: 111}, now)
				Expect(bindErr).NotTo(HaveOccurred())
			})

			It("reports already bound without changing the link", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(Equal(BindAlreadyBound))

				saved, _ := db.GetTrip("T100")
				Expect(saved.Drive.ID).To(Equal(int64(111)))
			})
		})

		When("another trip already claims the drive", func() {
			BeforeEach(func() {
				Expect(db.SaveTrip(newRecord("T200"))).To(Succeed())
				_, bindErr := db.BindDrive("T200", seg, now)
				Expect(bindErr).NotTo(HaveOccurred())
			})

			It("refuses the bind", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(Equal(BindDriveClaimed))

				saved, _ := db.GetTrip("T100")
				Expect(saved.Drive).To(BeNil())
			})
		})

		When("the same bind is retried", func() {
			BeforeEach(func() {
				_, bindErr := db.BindDrive("T100", seg, now)
				Expect(bindErr).NotTo(HaveOccurred())
			})

			It("is idempotent", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(result).To(Equal(BindAlreadyBound))
			})
		})

		When("the trip does not exist", func() {
			JustBeforeEach(func() {
				result, err = db.BindDrive("missing", seg, now)
			})

			It("returns an error", func() {
				Expect(err).To(HaveOccurred())
			})
		})
	})
})
