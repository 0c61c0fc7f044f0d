package machine

import (
	"errors"

	gomock "github.com/golang/mock/gomock"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"hrmc/pkg/hrm"
)

const (
	a = iota
	b
)

var _ = Describe("Machine", func() {
	Context("construction", func() {
		It("should reject duplicate labels", func() {
			_, err := New([]hrm.Instruction{hrm.Label(a), hrm.Inbox(), hrm.Label(a)}, nil)
			Expect(err).To(MatchError(ErrDuplicateLabel))
		})

		It("should reject jumps to missing labels", func() {
			_, err := New([]hrm.Instruction{hrm.Jump(a)}, nil)
			Expect(err).To(MatchError(ErrUnknownLabel))

			_, err = New([]hrm.Instruction{hrm.Label(a), hrm.Inbox(), hrm.JumpIfNegative(b)}, nil)
			Expect(err).To(MatchError(ErrUnknownLabel))
		})

		It("should reject presets outside memory", func() {
			_, err := New(nil, map[int]hrm.Value{10: hrm.Int(0)}, WithMemorySize(10))
			Expect(err).To(MatchError(ErrBadPreset))
		})

		It("should reject a memory without cells", func() {
			for _, size := range []int{0, -1} {
				_, err := New([]hrm.Instruction{hrm.Inbox()}, nil, WithMemorySize(size))
				Expect(err).To(MatchError(ErrBadMemorySize))
			}

			_, err := Run([]hrm.Instruction{hrm.Inbox(), hrm.Outbox()}, nil, hrm.Ints(1), WithMemorySize(-1))
			Expect(err).To(MatchError(ErrBadMemorySize))
		})

		It("should reject a step ceiling below one", func() {
			_, err := New(nil, nil, WithMaxSteps(0))
			Expect(err).To(MatchError(ErrBadMaxSteps))
		})

		It("should reject unknown opcodes", func() {
			program := []hrm.Instruction{hrm.Inbox(), {Op: hrm.Opcode(200)}}
			_, err := New(program, nil)
			Expect(err).To(MatchError(ErrUnknownOpcode))
			Expect(err.Error()).To(ContainSubstring("at 1"))
		})

		It("should accept an empty program and halt immediately", func() {
			out, err := Run(nil, nil, hrm.Ints(1, 2))
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
		})
	})

	Context("inbox and outbox", func() {
		var m *Machine

		BeforeEach(func() {
			var err error
			m, err = New([]hrm.Instruction{hrm.Label(a), hrm.Inbox(), hrm.Outbox(), hrm.Jump(a)}, nil)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should halt cleanly when the inbox is empty", func() {
			out, err := m.Execute(nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(BeEmpty())
		})

		It("should echo every input", func() {
			in := []hrm.Value{hrm.Int(1), hrm.Int(2), hrm.Letter('T')}
			out, err := m.Execute(in)
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(in))
		})

		It("should fail when outboxing an empty register", func() {
			out, err := Run([]hrm.Instruction{hrm.Outbox()}, nil, hrm.Ints(1, 2, 3))
			Expect(err).To(MatchError(ErrEmptyRegister))
			Expect(out).To(BeNil())
		})

		It("should discard partial output on failure", func() {
			program := []hrm.Instruction{hrm.Inbox(), hrm.Outbox(), hrm.Outbox()}
			out, err := Run(program, nil, hrm.Ints(1))
			Expect(err).To(HaveOccurred())
			Expect(out).To(BeNil())
		})
	})

	Context("step ceiling", func() {
		It("should abort a loop that never reads input", func() {
			_, err := Run([]hrm.Instruction{hrm.Label(a), hrm.Jump(a)}, nil, hrm.Ints(1, 2, 3))
			Expect(err).To(MatchError(ErrMaxSteps))

			var rerr *RuntimeError
			Expect(errors.As(err, &rerr)).To(BeTrue())
			Expect(rerr.Instruction).To(Equal(hrm.Jump(a)))
		})

		It("should honour a custom ceiling", func() {
			program := []hrm.Instruction{hrm.Inbox(), hrm.Outbox(), hrm.Inbox(), hrm.Outbox()}
			_, err := Run(program, nil, hrm.Ints(1, 2), WithMaxSteps(3))
			Expect(err).To(MatchError(ErrMaxSteps))

			out, err := Run(program, nil, hrm.Ints(1, 2), WithMaxSteps(4))
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(hrm.Ints(1, 2)))
		})
	})

	Context("memory", func() {
		presets := map[int]hrm.Value{0: hrm.Int(3), 1: hrm.Letter('B'), 3: hrm.Int(40)}

		It("should copy to and from cells", func() {
			program := []hrm.Instruction{
				hrm.Inbox(),
				hrm.CopyTo(hrm.FixedAddr(5)),
				hrm.CopyFrom(hrm.FixedAddr(1)),
				hrm.Outbox(),
				hrm.CopyFrom(hrm.FixedAddr(5)),
				hrm.Outbox(),
			}
			out, err := Run(program, presets, hrm.Ints(9))
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal([]hrm.Value{hrm.Letter('B'), hrm.Int(9)}))
		})

		It("should read and write through a pointer", func() {
			program := []hrm.Instruction{
				hrm.CopyFrom(hrm.Dereference(0)),
				hrm.Outbox(),
				hrm.Inbox(),
				hrm.CopyTo(hrm.Dereference(0)),
				hrm.CopyFrom(hrm.FixedAddr(3)),
				hrm.Outbox(),
			}
			out, err := Run(program, presets, hrm.Ints(7))
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(hrm.Ints(40, 7)))
		})

		It("should refuse to dereference a letter", func() {
			_, err := Run([]hrm.Instruction{hrm.CopyFrom(hrm.Dereference(1))}, presets, nil)
			Expect(err).To(MatchError(ErrBadDereference))
		})

		It("should refuse to dereference an empty cell", func() {
			_, err := Run([]hrm.Instruction{hrm.CopyFrom(hrm.Dereference(2))}, presets, nil)
			Expect(err).To(MatchError(ErrBadDereference))
		})

		It("should reject pointers outside memory", func() {
			_, err := Run([]hrm.Instruction{hrm.CopyFrom(hrm.Dereference(3))}, presets, nil, WithMemorySize(10))
			Expect(err).To(MatchError(ErrAddressOutOfRange))

			_, err = Run([]hrm.Instruction{hrm.CopyFrom(hrm.FixedAddr(10))}, nil, nil, WithMemorySize(10))
			Expect(err).To(MatchError(ErrAddressOutOfRange))
		})

		It("should fail on reading an empty cell", func() {
			_, err := Run([]hrm.Instruction{hrm.CopyFrom(hrm.FixedAddr(2))}, presets, nil)
			Expect(err).To(MatchError(ErrEmptyCell))
		})

		It("should fail on writing an empty register", func() {
			_, err := Run([]hrm.Instruction{hrm.CopyTo(hrm.FixedAddr(2))}, presets, nil)
			Expect(err).To(MatchError(ErrEmptyRegister))
		})

		It("should start every execution from the presets", func() {
			program := []hrm.Instruction{
				hrm.BumpUp(hrm.FixedAddr(0)),
				hrm.Outbox(),
			}
			m, err := New(program, presets)
			Expect(err).NotTo(HaveOccurred())
			for i := 0; i < 2; i++ {
				out, err := m.Execute(nil)
				Expect(err).NotTo(HaveOccurred())
				Expect(out).To(Equal(hrm.Ints(4)))
			}
		})
	})

	Context("arithmetic", func() {
		presets := map[int]hrm.Value{0: hrm.Int(3), 1: hrm.Letter('B'), 2: hrm.Letter('F')}

		DescribeTable("add and sub",
			func(program []hrm.Instruction, inbox []hrm.Value, want []hrm.Value) {
				out, err := Run(program, presets, inbox)
				Expect(err).NotTo(HaveOccurred())
				Expect(out).To(Equal(want))
			},
			Entry("int + int", []hrm.Instruction{hrm.Inbox(), hrm.Add(hrm.FixedAddr(0)), hrm.Outbox()}, hrm.Ints(4), hrm.Ints(7)),
			Entry("int - int", []hrm.Instruction{hrm.Inbox(), hrm.Sub(hrm.FixedAddr(0)), hrm.Outbox()}, hrm.Ints(4), hrm.Ints(1)),
			Entry("letter - letter", []hrm.Instruction{hrm.CopyFrom(hrm.FixedAddr(2)), hrm.Sub(hrm.FixedAddr(1)), hrm.Outbox()}, []hrm.Value(nil), hrm.Ints(4)),
			Entry("bump up", []hrm.Instruction{hrm.BumpUp(hrm.FixedAddr(0)), hrm.BumpUp(hrm.FixedAddr(0)), hrm.Outbox()}, []hrm.Value(nil), hrm.Ints(5)),
			Entry("bump down", []hrm.Instruction{hrm.BumpDown(hrm.FixedAddr(0)), hrm.CopyFrom(hrm.FixedAddr(0)), hrm.Outbox()}, []hrm.Value(nil), hrm.Ints(2)),
		)

		DescribeTable("type errors",
			func(program []hrm.Instruction, sentinel error) {
				_, err := Run(program, presets, hrm.Ints(1))
				Expect(err).To(MatchError(sentinel))
			},
			Entry("letter + int", []hrm.Instruction{hrm.CopyFrom(hrm.FixedAddr(1)), hrm.Add(hrm.FixedAddr(0))}, hrm.ErrArithmetic),
			Entry("int - letter", []hrm.Instruction{hrm.Inbox(), hrm.Sub(hrm.FixedAddr(1))}, hrm.ErrArithmetic),
			Entry("letter - int", []hrm.Instruction{hrm.CopyFrom(hrm.FixedAddr(1)), hrm.Sub(hrm.FixedAddr(0))}, hrm.ErrArithmetic),
			Entry("bump a letter", []hrm.Instruction{hrm.BumpUp(hrm.FixedAddr(1))}, hrm.ErrArithmetic),
			Entry("bump down a letter", []hrm.Instruction{hrm.BumpDown(hrm.FixedAddr(1))}, hrm.ErrArithmetic),
			Entry("add to empty register", []hrm.Instruction{hrm.Add(hrm.FixedAddr(0))}, ErrEmptyRegister),
			Entry("add empty cell", []hrm.Instruction{hrm.Inbox(), hrm.Add(hrm.FixedAddr(9))}, ErrEmptyCell),
			Entry("bump empty cell", []hrm.Instruction{hrm.BumpUp(hrm.FixedAddr(9))}, ErrEmptyCell),
		)
	})

	Context("conditional jumps", func() {
		// Outputs 1 when the jump is taken, 0 otherwise.
		presets := map[int]hrm.Value{0: hrm.Int(0), 1: hrm.Int(1)}
		program := func(jump hrm.Instruction) []hrm.Instruction {
			return []hrm.Instruction{
				hrm.Inbox(),
				jump,
				hrm.CopyFrom(hrm.FixedAddr(0)),
				hrm.Outbox(),
				hrm.Jump(b),
				hrm.Label(a),
				hrm.CopyFrom(hrm.FixedAddr(1)),
				hrm.Outbox(),
				hrm.Label(b),
			}
		}

		DescribeTable("taken or not",
			func(jump hrm.Instruction, in hrm.Value, taken int) {
				out, err := Run(program(jump), presets, []hrm.Value{in})
				Expect(err).NotTo(HaveOccurred())
				Expect(out).To(Equal(hrm.Ints(taken)))
			},
			Entry("zero on zero", hrm.JumpIfZero(a), hrm.Int(0), 1),
			Entry("zero on non-zero", hrm.JumpIfZero(a), hrm.Int(-3), 0),
			Entry("zero on letter", hrm.JumpIfZero(a), hrm.Letter('A'), 0),
			Entry("negative on negative", hrm.JumpIfNegative(a), hrm.Int(-1), 1),
			Entry("negative on zero", hrm.JumpIfNegative(a), hrm.Int(0), 0),
			Entry("negative on letter", hrm.JumpIfNegative(a), hrm.Letter('Z'), 0),
		)

		It("should fail on an empty register", func() {
			_, err := Run([]hrm.Instruction{hrm.Label(a), hrm.JumpIfZero(a)}, nil, nil)
			Expect(err).To(MatchError(ErrEmptyRegister))
		})
	})

	Context("tracing", func() {
		var mockCtrl *gomock.Controller

		BeforeEach(func() {
			mockCtrl = gomock.NewController(GinkgoT())
		})

		AfterEach(func() {
			mockCtrl.Finish()
		})

		It("should report each step before it executes", func() {
			tracer := NewMockTracer(mockCtrl)
			gomock.InOrder(
				tracer.EXPECT().Step(Step{Count: 1, PC: 0, Instruction: hrm.Inbox()}),
				tracer.EXPECT().Step(Step{Count: 2, PC: 1, Instruction: hrm.Outbox(), Register: hrm.Int(5), HasRegister: true}),
				tracer.EXPECT().Step(Step{Count: 3, PC: 2, Instruction: hrm.Inbox()}),
			)

			out, err := Run([]hrm.Instruction{hrm.Inbox(), hrm.Outbox(), hrm.Inbox()}, nil, hrm.Ints(5), WithTracer(tracer))
			Expect(err).NotTo(HaveOccurred())
			Expect(out).To(Equal(hrm.Ints(5)))
		})

		It("should render a table of steps", func() {
			tracer := NewTableTracer(2)
			_, err := Run([]hrm.Instruction{hrm.Inbox(), hrm.Outbox(), hrm.Inbox()}, nil, hrm.Letters("Q"), WithTracer(tracer))
			Expect(err).NotTo(HaveOccurred())
			Expect(tracer.Steps()).To(HaveLen(2))

			rendered := tracer.Render()
			Expect(rendered).To(ContainSubstring("Execution trace"))
			Expect(rendered).To(ContainSubstring("OUTBOX"))
			Expect(rendered).To(ContainSubstring("Q"))
		})
	})
})
