package plic

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/tinyrange/plic/internal/irq"
)

var _ = Describe("Controller", func() {
	var (
		mockCtrl *gomock.Controller
		regs     *MockRegisters
		table    *MockTable
		parent   *MockParent
		cfg      Config
		layout   Layout
		c        *Controller
		faults   []error
	)

	build := func() {
		var err error
		layout = NewLayout(cfg)
		c, err = New(cfg, Options{
			Registers: regs,
			Table:     table,
			Parent:    parent,
			Fatal:     func(err error) { faults = append(faults, err) },
		})
		Expect(err).ToNot(HaveOccurred())
	}

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		regs = NewMockRegisters(mockCtrl)
		table = NewMockTable(mockCtrl)
		parent = NewMockParent(mockCtrl)
		faults = nil
		cfg = Config{
			Name:        "plic0",
			BaseAddress: 0x0c00_0000,
			NumSources:  4,
			MaxPriority: 7,
			ParentIRQ:   11,
			EdgeTrigger: true,
		}
		build()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	Context("when initialized", func() {
		It("should clear the controller before arming the parent line", func() {
			gomock.InOrder(
				regs.EXPECT().Store32(layout.Enable, uint32(0)),
				regs.EXPECT().Store32(layout.PriorityAddr(1), uint32(0)),
				regs.EXPECT().Store32(layout.PriorityAddr(2), uint32(0)),
				regs.EXPECT().Store32(layout.PriorityAddr(3), uint32(0)),
				regs.EXPECT().Store32(layout.Threshold, uint32(0)),
				parent.EXPECT().Connect(uint32(11), gomock.Any(), gomock.Nil()).Return(nil),
				parent.EXPECT().Enable(uint32(11)).Return(nil),
			)

			Expect(c.Init()).To(Succeed())
			Expect(c.Init()).To(Succeed())
		})

		It("should report a parent line that cannot be connected", func() {
			regs.EXPECT().Store32(gomock.Any(), uint32(0)).AnyTimes()
			parent.EXPECT().
				Connect(uint32(11), gomock.Any(), gomock.Nil()).
				Return(errors.New("line busy"))

			err := c.Init()

			Expect(err).To(MatchError(ContainSubstring("line busy")))
			Expect(c.Init()).To(MatchError(err))
		})
	})

	Context("when an edge source is claimed", func() {
		It("should complete before dispatching", func() {
			handled := false
			gomock.InOrder(
				regs.EXPECT().Load32(layout.Claim).Return(uint32(1)),
				regs.EXPECT().Load32(layout.TriggerAddr(1)).Return(uint32(1<<1)),
				regs.EXPECT().Store32(layout.Claim, uint32(1)).Do(func(uint64, uint32) {
					Expect(handled).To(BeFalse())
				}),
				table.EXPECT().Lookup(uint32(1)).Return(irq.Entry{
					Handler: func(any) { handled = true },
				}, true),
			)

			Expect(c.HandleIRQ()).To(Succeed())
			Expect(handled).To(BeTrue())
			Expect(c.CurrentClaimedID()).To(Equal(uint32(1)))
		})
	})

	Context("when a level source is claimed", func() {
		It("should complete after the handler returns", func() {
			handled := false
			gomock.InOrder(
				regs.EXPECT().Load32(layout.Claim).Return(uint32(3)),
				regs.EXPECT().Load32(layout.TriggerAddr(3)).Return(uint32(1<<1)),
				table.EXPECT().Lookup(uint32(3)).Return(irq.Entry{
					Handler: func(arg any) {
						Expect(arg).To(Equal("uart"))
						handled = true
					},
					Arg: "uart",
				}, true),
				regs.EXPECT().Store32(layout.Claim, uint32(3)).Do(func(uint64, uint32) {
					Expect(handled).To(BeTrue())
				}),
			)

			Expect(c.HandleIRQ()).To(Succeed())
		})

		It("should not read the trigger bank when the platform lacks one", func() {
			cfg.EdgeTrigger = false
			build()

			gomock.InOrder(
				regs.EXPECT().Load32(layout.Claim).Return(uint32(2)),
				table.EXPECT().Lookup(uint32(2)).Return(irq.Entry{Handler: func(any) {}}, true),
				regs.EXPECT().Store32(layout.Claim, uint32(2)),
			)

			Expect(c.HandleIRQ()).To(Succeed())
		})
	})

	Context("when the claim is spurious", func() {
		DescribeTable("should escalate without completing or dispatching",
			func(id uint32) {
				regs.EXPECT().Load32(layout.Claim).Return(id)

				c.ISR(nil)

				Expect(faults).To(HaveLen(1))
				Expect(faults[0]).To(MatchError(ErrSpurious))
			},
			Entry("claim of zero", uint32(0)),
			Entry("claim of the source count", uint32(4)),
			Entry("claim beyond the source count", uint32(9)),
		)
	})

	Context("when no handler is registered", func() {
		It("should escalate and leave a level source in service", func() {
			gomock.InOrder(
				regs.EXPECT().Load32(layout.Claim).Return(uint32(2)),
				regs.EXPECT().Load32(layout.TriggerAddr(2)).Return(uint32(0)),
				table.EXPECT().Lookup(uint32(2)).Return(irq.Entry{}, false),
			)

			c.ISR(nil)

			Expect(faults).To(HaveLen(1))
			Expect(faults[0]).To(MatchError(ErrUnregistered))
		})
	})
})
