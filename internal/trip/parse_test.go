package trip

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("ParseFields", func() {
	var (
		text     string
		category Category
		fields   ReceiptFields
	)

	BeforeEach(func() {
		category = CategoryUberCore
	})

	JustBeforeEach(func() {
		fields = ParseFields(text, category)
	})

	When("parsing a completed trip receipt", func() {
		BeforeEach(func() {
			text = "Uber Comfort\nPicking up Marcus\nRider payment $25.43\n" +
				"Fare $19.20\nYour earnings $18.50\nTip $3.00\nBooking Fee $1.25\n" +
				"5.2 mi · 18 min"
		})

		It("extracts the rider name", func() {
			Expect(fields.RiderName).To(Equal("Marcus"))
		})

		It("extracts the rider payment", func() {
			Expect(fields.RiderPayment.Equal(decimal.RequireFromString("25.43"))).To(BeTrue())
		})

		It("extracts the fare", func() {
			Expect(fields.Fare.Equal(decimal.RequireFromString("19.20"))).To(BeTrue())
		})

		It("extracts the driver earnings", func() {
			Expect(fields.DriverEarnings.Equal(decimal.RequireFromString("18.50"))).To(BeTrue())
		})

		It("extracts the tip", func() {
			Expect(fields.Tip.Equal(decimal.RequireFromString("3.00"))).To(BeTrue())
		})

		It("extracts the insurance fees", func() {
			Expect(fields.InsuranceFees.Equal(decimal.RequireFromString("1.25"))).To(BeTrue())
		})

		It("extracts distance and duration", func() {
			Expect(fields.DistanceMiles).To(Equal(5.2))
			Expect(fields.DurationMinutes).To(Equal(18.0))
		})

		It("extracts the service type", func() {
			Expect(fields.ServiceType).To(Equal("Comfort"))
		})

		It("marks the trip a Win when earnings clear half the payment", func() {
			Expect(fields.Result).To(Equal("Win"))
		})
	})

	When("the receipt is an offer screen with only a bare amount", func() {
		BeforeEach(func() {
			text = "Picking up Sarah\n $12.50 \n3.2 mi\n12 min"
		})

		It("treats the bare amount as the earnings estimate", func() {
			Expect(fields.DriverEarnings.Equal(decimal.RequireFromString("12.50"))).To(BeTrue())
		})

		It("floors the rider payment at the bare amount", func() {
			Expect(fields.RiderPayment.Equal(decimal.RequireFromString("12.50"))).To(BeTrue())
		})

		It("marks the trip a Win", func() {
			Expect(fields.Result).To(Equal("Win"))
		})
	})

	When("a labeled earnings line is present alongside a bare amount", func() {
		BeforeEach(func() {
			text = "Your earnings $18.50\n $5.00 \nRider payment $25.00"
		})

		It("prefers the labeled earnings", func() {
			Expect(fields.DriverEarnings.Equal(decimal.RequireFromString("18.50"))).To(BeTrue())
		})

		It("keeps the labeled rider payment", func() {
			Expect(fields.RiderPayment.Equal(decimal.RequireFromString("25.00"))).To(BeTrue())
		})
	})

	When("the earnings fall below half the rider payment", func() {
		BeforeEach(func() {
			text = "Rider payment $30.00\nYour earnings $10.00\n4.0 mi\n15 min"
		})

		It("marks the trip a Loss", func() {
			Expect(fields.Result).To(Equal("Loss"))
		})
	})

	When("a Venmo payment marker overrides the platform amounts", func() {
		BeforeEach(func() {
			category = CategoryPrivate
			text = "Picking up Jordan\nVenmo\n+$40.00\n8.1 mi\n25 min"
		})

		It("sets both payment and earnings to the private amount", func() {
			Expect(fields.DriverEarnings.Equal(decimal.RequireFromString("40.00"))).To(BeTrue())
			Expect(fields.RiderPayment.Equal(decimal.RequireFromString("40.00"))).To(BeTrue())
		})

		It("marks the trip a Win", func() {
			Expect(fields.Result).To(Equal("Win"))
		})
	})

	When("the category is an expense", func() {
		BeforeEach(func() {
			category = CategoryExpense
			text = "Shell\nTotal $45.00\nFuel"
		})

		It("extracts only the fare", func() {
			Expect(fields.Fare.Equal(decimal.RequireFromString("45.00"))).To(BeTrue())
			Expect(fields.DriverEarnings.IsZero()).To(BeTrue())
		})

		It("carries no win/loss call", func() {
			Expect(fields.Result).To(BeEmpty())
		})
	})

	When("the category is a context screenshot", func() {
		BeforeEach(func() {
			category = CategoryAviation
			text = "Flightradar24 UA1234 $99.99"
		})

		It("extracts no financial fields", func() {
			Expect(fields.Fare.IsZero()).To(BeTrue())
			Expect(fields.RiderPayment.IsZero()).To(BeTrue())
			Expect(fields.Result).To(BeEmpty())
		})
	})

	When("an amount has no cents", func() {
		BeforeEach(func() {
			text = "Rider payment $25"
		})

		It("does not parse it as a price", func() {
			Expect(fields.RiderPayment.IsZero()).To(BeTrue())
		})
	})

	When("the text mentions an airport", func() {
		BeforeEach(func() {
			text = "Picking up Ana\nDEN Airport\n$32.00\n22.0 mi\n35 min"
		})

		It("flags the airport trip", func() {
			Expect(fields.Airport).To(BeTrue())
		})
	})

	When("the text is empty", func() {
		BeforeEach(func() {
			text = ""
		})

		It("returns zeroed fields with a Loss result", func() {
			Expect(fields.RiderPayment.IsZero()).To(BeTrue())
			Expect(fields.Result).To(Equal("Loss"))
		})
	})
})

var _ = Describe("HasPrivatePayment", func() {
	It("detects a Venmo marker with a plus amount", func() {
		Expect(HasPrivatePayment("Venmo +$40.00")).To(BeTrue())
	})

	It("ignores a Venmo mention without an amount", func() {
		Expect(HasPrivatePayment("paid via Venmo later")).To(BeFalse())
	})

	It("ignores a plus amount without a Venmo marker", func() {
		Expect(HasPrivatePayment("Tip +$5.00")).To(BeFalse())
	})
})
