// Package arm64 lowers the architecture-neutral pseudo-instructions of
// package simd to AArch64 NEON machine code. Templates below follow the
// Arm Architecture Reference Manual encoding classes; each constant is the
// instruction word with all variable operand fields at zero, so that the
// synthesizer only ever ORs encoded fields into template zeros.
package arm64

// ================================================================================================
// Loads and stores (SIMD&FP and general registers)
// ================================================================================================

const (
	A64_LDR_Q_IMM = 0x3DC00000 // LDR Qt, [Xn, #imm12*16]
	A64_STR_Q_IMM = 0x3D800000 // STR Qt, [Xn, #imm12*16]
	A64_LDUR_Q    = 0x3CC00000 // LDUR Qt, [Xn, #simm9]
	A64_STUR_Q    = 0x3C800000 // STUR Qt, [Xn, #simm9]
	A64_LDR_Q_REG = 0x3CE06800 // LDR Qt, [Xn, Xm]
	A64_STR_Q_REG = 0x3CA06800 // STR Qt, [Xn, Xm]

	A64_LDR_X_IMM = 0xF9400000 // LDR Xt, [Xn, #imm12*8]
	A64_STR_X_IMM = 0xF9000000 // STR Xt, [Xn, #imm12*8]
)

// ================================================================================================
// Base-register data processing (address pre-computation, lane emulation)
// ================================================================================================

const (
	A64_ADD_X_IMM = 0x91000000 // ADD Xd, Xn, #imm12
	A64_SUB_X_IMM = 0xD1000000 // SUB Xd, Xn, #imm12
	A64_ADD_X_REG = 0x8B000000 // ADD Xd, Xn, Xm
	A64_MOVZ_X    = 0xD2800000 // MOVZ Xd, #imm16, LSL #(hw*16)
	A64_MOVK_X    = 0xF2800000 // MOVK Xd, #imm16, LSL #(hw*16)
	A64_MOVN_X    = 0x92800000 // MOVN Xd, #imm16, LSL #(hw*16)
	A64_MUL_X     = 0x9B007C00 // MUL Xd, Xn, Xm (MADD with Ra=XZR)
	A64_CMP_X     = 0xEB00001F // CMP Xn, Xm (SUBS XZR, Xn, Xm)
	A64_CSEL_X    = 0x9A800000 // CSEL Xd, Xn, Xm, cond
	A64_CMN_X_IMM = 0xB100001F // CMN Xn, #imm12 (ADDS XZR, Xn, #imm12)
	A64_CMN_W_IMM = 0x3100001F // CMN Wn, #imm12
)

// ================================================================================================
// Branches
// ================================================================================================

const (
	A64_BCOND = 0x54000000 // B.cond #imm19
	A64_B     = 0x14000000 // B #imm26
	A64_CBZ_X = 0xB4000000 // CBZ Xt, #imm19
	A64_CBZ_W = 0x34000000 // CBZ Wt, #imm19
)

// Condition codes for B.cond / CSEL.
const (
	CondEQ = 0x0
	CondNE = 0x1
	CondHS = 0x2 // unsigned >=
	CondLO = 0x3 // unsigned <
	CondHI = 0x8 // unsigned >
	CondLS = 0x9 // unsigned <=
	CondGE = 0xA // signed >=
	CondLT = 0xB // signed <
	CondGT = 0xC // signed >
	CondLE = 0xD // signed <=
)

// ================================================================================================
// Vector integer three-same. The element size field goes at bits 23..22
// (01 = 16-bit, 10 = 32-bit, 11 = 64-bit lanes); templates carry size 00.
// ================================================================================================

const (
	A64_V_ADD  = 0x4E208400 // ADD Vd.T, Vn.T, Vm.T
	A64_V_SUB  = 0x6E208400 // SUB Vd.T, Vn.T, Vm.T
	A64_V_MUL  = 0x4E209C00 // MUL Vd.T, Vn.T, Vm.T (no 64-bit lane form)
	A64_V_SMAX = 0x4E206400 // SMAX Vd.T, Vn.T, Vm.T (no 64-bit lane form)
	A64_V_SMIN = 0x4E206C00 // SMIN Vd.T, Vn.T, Vm.T (no 64-bit lane form)
	A64_V_UMAX = 0x6E206400 // UMAX Vd.T, Vn.T, Vm.T (no 64-bit lane form)
	A64_V_UMIN = 0x6E206C00 // UMIN Vd.T, Vn.T, Vm.T (no 64-bit lane form)
	A64_V_CMEQ = 0x6E208C00 // CMEQ Vd.T, Vn.T, Vm.T
	A64_V_CMGT = 0x4E203400 // CMGT Vd.T, Vn.T, Vm.T (signed)
	A64_V_CMGE = 0x4E203C00 // CMGE Vd.T, Vn.T, Vm.T (signed)
	A64_V_CMHI = 0x6E203400 // CMHI Vd.T, Vn.T, Vm.T (unsigned)
	A64_V_CMHS = 0x6E203C00 // CMHS Vd.T, Vn.T, Vm.T (unsigned)
)

// ================================================================================================
// Vector bitwise ops. Lane-width independent; the "size" bits are part of
// the opcode and the templates are complete as written.
// ================================================================================================

const (
	A64_V_AND   = 0x4E201C00 // AND Vd.16B, Vn.16B, Vm.16B
	A64_V_BIC   = 0x4E601C00 // BIC Vd.16B, Vn.16B, Vm.16B (Vn & ^Vm)
	A64_V_ORR   = 0x4EA01C00 // ORR Vd.16B, Vn.16B, Vm.16B (MOV alias when Vn==Vm)
	A64_V_ORN   = 0x4EE01C00 // ORN Vd.16B, Vn.16B, Vm.16B
	A64_V_EOR   = 0x6E201C00 // EOR Vd.16B, Vn.16B, Vm.16B
	A64_V_NOT   = 0x6E205800 // NOT Vd.16B, Vn.16B
	A64_V_MOVI0 = 0x6F00E400 // MOVI Vd.2D, #0
)

// ================================================================================================
// Vector floating-point three-same, single/double precision. The sz bit at
// 22 selects double; templates carry sz=0 (.4S).
// ================================================================================================

const (
	A64_V_FADD    = 0x4E20D400 // FADD Vd.T, Vn.T, Vm.T
	A64_V_FSUB    = 0x4EA0D400 // FSUB Vd.T, Vn.T, Vm.T
	A64_V_FMUL    = 0x6E20DC00 // FMUL Vd.T, Vn.T, Vm.T
	A64_V_FDIV    = 0x6E20FC00 // FDIV Vd.T, Vn.T, Vm.T
	A64_V_FMAX    = 0x4E20F400 // FMAX Vd.T, Vn.T, Vm.T
	A64_V_FMIN    = 0x4EA0F400 // FMIN Vd.T, Vn.T, Vm.T
	A64_V_FMLA    = 0x4E20CC00 // FMLA Vd.T, Vn.T, Vm.T (Vd += Vn*Vm)
	A64_V_FMLS    = 0x4EA0CC00 // FMLS Vd.T, Vn.T, Vm.T (Vd -= Vn*Vm)
	A64_V_FCMEQ   = 0x4E20E400 // FCMEQ Vd.T, Vn.T, Vm.T
	A64_V_FCMGE   = 0x6E20E400 // FCMGE Vd.T, Vn.T, Vm.T
	A64_V_FCMGT   = 0x6EA0E400 // FCMGT Vd.T, Vn.T, Vm.T
	A64_V_FRECPS  = 0x4E20FC00 // FRECPS Vd.T, Vn.T, Vm.T (2 - Vn*Vm)
	A64_V_FRSQRTS = 0x4EA0FC00 // FRSQRTS Vd.T, Vn.T, Vm.T ((3 - Vn*Vm)/2)
	A64_V_FONE    = 0x4F03F600 // FMOV Vd.4S, #1.0 (Q set; |1<<29 for .2D)
)

// ================================================================================================
// Vector floating-point three-same, half precision (FEAT_FP16). Separate
// encoding class from the single/double forms; templates are complete.
// ================================================================================================

const (
	A64_V_FADD_H    = 0x4E401400 // FADD Vd.8H, Vn.8H, Vm.8H
	A64_V_FSUB_H    = 0x4EC01400 // FSUB Vd.8H, Vn.8H, Vm.8H
	A64_V_FMUL_H    = 0x6E401C00 // FMUL Vd.8H, Vn.8H, Vm.8H
	A64_V_FDIV_H    = 0x6E403C00 // FDIV Vd.8H, Vn.8H, Vm.8H
	A64_V_FMAX_H    = 0x4E403400 // FMAX Vd.8H, Vn.8H, Vm.8H
	A64_V_FMIN_H    = 0x4EC03400 // FMIN Vd.8H, Vn.8H, Vm.8H
	A64_V_FMLA_H    = 0x4E400C00 // FMLA Vd.8H, Vn.8H, Vm.8H
	A64_V_FMLS_H    = 0x4EC00C00 // FMLS Vd.8H, Vn.8H, Vm.8H
	A64_V_FCMEQ_H   = 0x4E402400 // FCMEQ Vd.8H, Vn.8H, Vm.8H
	A64_V_FCMGE_H   = 0x6E402400 // FCMGE Vd.8H, Vn.8H, Vm.8H
	A64_V_FCMGT_H   = 0x6EC02400 // FCMGT Vd.8H, Vn.8H, Vm.8H
	A64_V_FRECPS_H  = 0x4E403C00 // FRECPS Vd.8H, Vn.8H, Vm.8H
	A64_V_FRSQRTS_H = 0x4EC03C00 // FRSQRTS Vd.8H, Vn.8H, Vm.8H
)

// ================================================================================================
// Vector two-register misc: conversions, rounding, estimates. Single/double
// templates carry sz=0 at bit 22; half-precision forms are their own class.
// ================================================================================================

const (
	A64_V_FCVTNS = 0x4E21A800 // FCVTNS Vd.T, Vn.T (to nearest, ties even)
	A64_V_FCVTMS = 0x4E21B800 // FCVTMS Vd.T, Vn.T (toward -inf)
	A64_V_FCVTPS = 0x4EA1A800 // FCVTPS Vd.T, Vn.T (toward +inf)
	A64_V_FCVTZS = 0x4EA1B800 // FCVTZS Vd.T, Vn.T (toward zero)
	// The unsigned variants are the same templates with the U bit (29) set.

	A64_V_SCVTF   = 0x4E21D800 // SCVTF Vd.T, Vn.T
	A64_V_UCVTF   = 0x6E21D800 // UCVTF Vd.T, Vn.T
	A64_V_FRINTI  = 0x6EA19800 // FRINTI Vd.T, Vn.T (round per FPCR)
	A64_V_FRECPE  = 0x4EA1D800 // FRECPE Vd.T, Vn.T
	A64_V_FRSQRTE = 0x6EA1D800 // FRSQRTE Vd.T, Vn.T
	A64_V_FSQRT   = 0x6EA1F800 // FSQRT Vd.T, Vn.T

	A64_V_FCVTNS_H = 0x4E79A800 // FCVTNS Vd.8H, Vn.8H
	A64_V_FCVTMS_H = 0x4E79B800 // FCVTMS Vd.8H, Vn.8H
	A64_V_FCVTPS_H = 0x4EF9A800 // FCVTPS Vd.8H, Vn.8H
	A64_V_FCVTZS_H = 0x4EF9B800 // FCVTZS Vd.8H, Vn.8H

	A64_V_SCVTF_H   = 0x4E79D800 // SCVTF Vd.8H, Vn.8H
	A64_V_UCVTF_H   = 0x6E79D800 // UCVTF Vd.8H, Vn.8H
	A64_V_FRINTI_H  = 0x6EF99800 // FRINTI Vd.8H, Vn.8H
	A64_V_FRECPE_H  = 0x4EF9D800 // FRECPE Vd.8H, Vn.8H
	A64_V_FRSQRTE_H = 0x6EF9D800 // FRSQRTE Vd.8H, Vn.8H
	A64_V_FSQRT_H   = 0x6EF9F800 // FSQRT Vd.8H, Vn.8H
)

// The U bit distinguishes the signed and unsigned conversion families.
const A64_U_BIT = 1 << 29

// The sz bit selects double precision in the single/double FP classes.
const A64_SZ_BIT = 1 << 22

// ================================================================================================
// Shifts by immediate. The shift amount is folded into immh:immb at bits
// 22..16; templates carry immh:immb = 0 (which is never a valid encoding on
// its own, so a template can not leak through unpatched).
// ================================================================================================

const (
	A64_V_SHL  = 0x4F005400 // SHL Vd.T, Vn.T, #sh
	A64_V_USHR = 0x6F000400 // USHR Vd.T, Vn.T, #sh
	A64_V_SSHR = 0x4F000400 // SSHR Vd.T, Vn.T, #sh
)

// ================================================================================================
// Mask reduction: across-lanes and pairwise ops plus lane moves.
// ================================================================================================

const (
	A64_ADDP_D    = 0x5EF1B800 // ADDP Dd, Vn.2D (scalar pairwise sum)
	A64_V_UMAXV_H = 0x6E70A800 // UMAXV Hd, Vn.8H
	A64_V_SMAXV_H = 0x4E70A800 // SMAXV Hd, Vn.8H
	A64_V_UMAXV_S = 0x6EB0A800 // UMAXV Sd, Vn.4S
	A64_V_SMAXV_S = 0x4EB0A800 // SMAXV Sd, Vn.4S
	A64_FMOV_X_D  = 0x9E660000 // FMOV Xd, Dn
	A64_UMOV_X_D0 = 0x4E083C00 // UMOV Xd, Vn.D[0]
	A64_UMOV_X_D1 = 0x4E183C00 // UMOV Xd, Vn.D[1]
	A64_UMOV_W_H0 = 0x0E023C00 // UMOV Wd, Vn.H[0]
	A64_SMOV_W_H0 = 0x0E022C00 // SMOV Wd, Vn.H[0]
	A64_UMOV_W_S0 = 0x0E043C00 // UMOV Wd, Vn.S[0]
)
