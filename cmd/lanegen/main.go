// lanegen lowers a textual pseudo-vector program to AArch64 NEON machine
// code. The lower subcommand prints the encoded words (optionally
// disassembled against the reference decoder); the run subcommand executes
// the result on the bundled interpreter.
package main

import (
	"encoding/binary"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/xlab/treeprint"
	"golang.org/x/arch/arm64/arm64asm"

	"github.com/vectorforge/lanegen/emu"
	"github.com/vectorforge/lanegen/log"
	"github.com/vectorforge/lanegen/simd"
	"github.com/vectorforge/lanegen/simd/arm64"
)

var (
	Version = "dev"
	Commit  = "none"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "lanegen",
		Short: "Vector pseudo-instruction lowering for AArch64",
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	var (
		elemName  string
		shapeName string
		approx    string
		exactFMA  bool
		arenaBase uint8
		arenaOffA int32
		arenaOffB int32
		logLevel  string
		debug     string
		disasm    bool
		tree      bool
	)

	addCommon := func(cmd *cobra.Command) {
		cmd.Flags().StringVar(&elemName, "elem", "f64", "default element type (f16..u64)")
		cmd.Flags().StringVar(&shapeName, "shape", "v128", "vector shape: v128 or v256")
		cmd.Flags().StringVar(&approx, "approx", "full", "recip/rsqrt accuracy: fast, refined or full")
		cmd.Flags().BoolVar(&exactFMA, "exact-fma", true, "keep fused multiply-add fused")
		cmd.Flags().Uint8Var(&arenaBase, "arena-base", 2, "base register of the emulation scratch arena")
		cmd.Flags().Int32Var(&arenaOffA, "arena-off-a", 0, "byte offset of arena slot A")
		cmd.Flags().Int32Var(&arenaOffB, "arena-off-b", 16, "byte offset of arena slot B")
		cmd.Flags().StringVar(&logLevel, "log", "info", "log level")
		cmd.Flags().StringVar(&debug, "debug", "", "comma-separated log modules to enable")
	}

	buildConfig := func() (simd.Config, error) {
		cfg := simd.DefaultConfig()
		e, ok := elemNames[elemName]
		if !ok {
			return cfg, fmt.Errorf("unknown element type %q", elemName)
		}
		cfg.Elem = e
		switch shapeName {
		case "v128":
			cfg.Shape = simd.Vec128
		case "v256":
			cfg.Shape = simd.Vec256
		default:
			return cfg, fmt.Errorf("unknown shape %q", shapeName)
		}
		switch approx {
		case "fast":
			cfg.Approx = simd.ApproxFast
		case "refined":
			cfg.Approx = simd.ApproxRefined
		case "full":
			cfg.Approx = simd.ApproxFull
		default:
			return cfg, fmt.Errorf("unknown approximation level %q", approx)
		}
		cfg.ExactFMA = exactFMA
		return cfg, nil
	}

	lowerSource := func(path string) (simd.Config, []Statement, []uint32, error) {
		log.InitLogger(logLevel)
		log.EnableModules(debug)
		cfg, err := buildConfig()
		if err != nil {
			return cfg, nil, nil, err
		}
		src, err := os.ReadFile(path)
		if err != nil {
			return cfg, nil, nil, err
		}
		arena, err := arm64.NewScratchArena(simd.BaseReg(arenaBase), arenaOffA, arenaOffB)
		if err != nil {
			return cfg, nil, nil, err
		}
		tgt := arm64.New(cfg, arena)
		p := simd.NewProgram()
		stmts, err := Assemble(string(src), cfg, tgt, p)
		if err != nil {
			return cfg, nil, nil, err
		}
		words, err := p.Words()
		if err != nil {
			return cfg, nil, nil, err
		}
		log.Info(log.ToolMonitoring, "lowered program", "statements", len(stmts), "words", len(words), "target", tgt.Name())
		return cfg, stmts, words, nil
	}

	var lowerCmd = &cobra.Command{
		Use:   "lower <program>",
		Short: "Lower a pseudo-program and print the machine words",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, stmts, words, err := lowerSource(args[0])
			if err != nil {
				return err
			}
			if tree {
				printTree(stmts, words)
				return nil
			}
			for _, st := range stmts {
				fmt.Printf("// %s\n", st.Source)
				for _, w := range words[st.First : st.First+st.Count] {
					printWord(w, disasm)
				}
			}
			// Words past the last statement only exist for bound trailing labels.
			return nil
		},
	}
	addCommon(lowerCmd)
	lowerCmd.Flags().BoolVar(&disasm, "disasm", false, "disassemble each word")
	lowerCmd.Flags().BoolVar(&tree, "tree", false, "print the statement/word tree")

	var runCmd = &cobra.Command{
		Use:   "run <program>",
		Short: "Lower a pseudo-program and execute it on the interpreter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, _, words, err := lowerSource(args[0])
			if err != nil {
				return err
			}
			m := emu.New(words, 1<<16)
			m.X[uint8(arenaBase)] = 1 << 12
			if err := m.Run(1 << 20); err != nil {
				return err
			}
			log.Info(log.MachineMonitoring, "run complete", "instructions", len(words))
			for i := 0; i < 8; i++ {
				fmt.Printf("v%-2d %016x %016x\n", i, m.V[i][1], m.V[i][0])
			}
			return nil
		},
	}
	addCommon(runCmd)

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("lanegen %s (%s)\n", Version, Commit)
		},
	}

	rootCmd.AddCommand(lowerCmd, runCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printWord(w uint32, disasm bool) {
	if !disasm {
		fmt.Printf("  %08x\n", w)
		return
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], w)
	if inst, err := arm64asm.Decode(buf[:]); err == nil {
		fmt.Printf("  %08x  %s\n", w, strings.ToLower(inst.String()))
	} else {
		fmt.Printf("  %08x  ?\n", w)
	}
}

func printTree(stmts []Statement, words []uint32) {
	root := treeprint.NewWithRoot("program")
	for _, st := range stmts {
		branch := root.AddBranch(fmt.Sprintf("%d: %s", st.Line, st.Source))
		for _, w := range words[st.First : st.First+st.Count] {
			branch.AddNode(fmt.Sprintf("%08x", w))
		}
	}
	fmt.Print(root.String())
}
