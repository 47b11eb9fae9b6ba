package protocol_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/pyncx/ncx/internal/protocol"
)

func TestProtocol(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Protocol Suite")
}

var _ = Describe("Schedule", func() {
	var s protocol.Schedule

	BeforeEach(func() {
		s = protocol.Default(protocol.DefaultChi)
	})

	It("has fourteen windows ending at 460", func() {
		Expect(s.Windows).To(HaveLen(14))
		Expect(s.End()).To(Equal(460.0))
	})

	It("threads the stimulus across a stepped clock", func() {
		const dt = 0.003
		t, stim := 0.0, s.Seed
		var firstInside int
		for i := 1; i <= 12000; i++ {
			t += dt
			stim = s.Eval(t, stim)
			if firstInside == 0 && stim.Na == 100 {
				firstInside = i
			}
		}
		Expect(firstInside).To(Equal(10000))
		Expect(stim).To(Equal(protocol.Stimulus{Na: 100, Ca: 2}))
	})

	DescribeTable("window lookup",
		func(at float64, want protocol.Stimulus) {
			Expect(s.Eval(at, s.Seed)).To(Equal(want))
		},
		Entry("calcium and sodium", 45.0, protocol.Stimulus{Na: 100, Ca: 2}),
		Entry("washout", 75.0, protocol.Stimulus{Na: 0, Ca: 0}),
		Entry("sodium only", 110.0, protocol.Stimulus{Na: 100, Ca: 0}),
		Entry("calcium only", 260.0, protocol.Stimulus{Na: 0, Ca: 2}),
		Entry("before protocol", 10.0, protocol.Stimulus{Na: 0, Ca: 2}),
	)

	Context("after the last window", func() {
		It("keeps the last calcium level", func() {
			prev := protocol.Stimulus{Na: 100, Ca: 2}
			Expect(s.Eval(470, prev).Ca).To(Equal(2.0))
		})
	})

	It("rejects overlapping windows", func() {
		s.Windows = append(s.Windows, protocol.Window{Lo: 50, Hi: 70, Na: 1, Ca: 1})
		Expect(s.Validate()).To(MatchError(protocol.ErrOverlap))
	})
})
