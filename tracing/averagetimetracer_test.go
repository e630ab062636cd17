package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("AverageTimeTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		tracer     *AverageTimeTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		tracer = NewAverageTimeTracer(timeTeller, func(t Task) bool {
			return t.Kind == "req_in"
		})
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should average the cycles of the finished tasks", func() {
		gomock.InOrder(
			timeTeller.EXPECT().CurrentCycle().Return(uint64(10)),
			timeTeller.EXPECT().CurrentCycle().Return(uint64(12)),
			timeTeller.EXPECT().CurrentCycle().Return(uint64(14)),
			timeTeller.EXPECT().CurrentCycle().Return(uint64(20)),
		)

		tracer.StartTask(Task{ID: "1", Kind: "req_in"})
		tracer.StartTask(Task{ID: "2", Kind: "req_in"})
		tracer.EndTask(Task{ID: "1"})
		tracer.EndTask(Task{ID: "2"})

		Expect(tracer.TotalCount()).To(Equal(uint64(2)))
		Expect(tracer.AverageCycles()).To(BeNumerically("~", 6.0))
	})

	It("should ignore filtered tasks", func() {
		timeTeller.EXPECT().CurrentCycle().Return(uint64(10)).Times(2)

		tracer.StartTask(Task{ID: "1", Kind: "walk"})
		tracer.EndTask(Task{ID: "1"})

		Expect(tracer.TotalCount()).To(Equal(uint64(0)))
	})
})
