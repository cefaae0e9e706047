package ahm

import (
	"fmt"

	"gitlab.com/gomidi/midi/v2"

	"github.com/consolelink/consolelink-go/pkg/codec"
)

// Scene recall constants.
const (
	FunctionSceneRecall = "sceneRecall"

	MinScene = 1
	MaxScene = 500

	scenesPerBank      = 128
	ctrlBankSelect     = 0x00
	sceneMessageLength = 5
)

// Scene recall validation messages.
var (
	reasonSceneNotNumber = "scene must be a number"
	reasonSceneRange     = fmt.Sprintf("scene out of range (%d–%d)", MinScene, MaxScene)
)

// SceneToBankProgram splits a 1-based scene number into bank and program.
func SceneToBankProgram(scene int) (bank, program uint8) {
	return uint8((scene - 1) / scenesPerBank), uint8((scene - 1) % scenesPerBank)
}

// SceneFromBankProgram reverses SceneToBankProgram.
func SceneFromBankProgram(bank, program uint8) int {
	return int(bank)*scenesPerBank + int(program) + 1
}

// SceneRecall recalls scenes with a Bank Select / Program Change pair.
// The console has no scene query, so the current scene is only known once a
// recall has been sent or observed.
type SceneRecall struct {
	codec.NoInitialRequest

	current int // 0 = unknown
}

// NewSceneRecall creates a scene recall codec.
func NewSceneRecall() *SceneRecall {
	return &SceneRecall{}
}

// Name returns "sceneRecall".
func (s *SceneRecall) Name() string { return FunctionSceneRecall }

// Current returns the cached scene and whether it is known.
func (s *SceneRecall) Current() (int, bool) {
	return s.current, s.current != 0
}

// Encode handles {function: sceneRecall[, scene: N]}. Without a scene the
// cache is returned and nothing is sent.
func (s *SceneRecall) Encode(cmd codec.Command, ch codec.Channel) codec.Result {
	if cmd.Function() != FunctionSceneRecall {
		return codec.NotMine()
	}
	if !cmd.Has("scene") {
		return codec.NoOp(s.Snapshot().Ptr())
	}

	scene, err := cmd.Int("scene")
	if err != nil {
		return codec.Invalid(reasonSceneNotNumber)
	}
	if scene < MinScene || scene > MaxScene {
		return codec.Invalid(reasonSceneRange)
	}

	bank, program := SceneToBankProgram(scene)
	msg := midi.ControlChange(uint8(ch), ctrlBankSelect, bank)
	msg = append(msg, midi.ProgramChange(uint8(ch), program)...)

	s.current = scene
	return codec.Bytes([]byte(msg), s.Snapshot().Ptr())
}

// Decode looks for [BN 00 bank CN program] anywhere in buf. The last match wins.
func (s *SceneRecall) Decode(ch codec.Channel, buf []byte, syncing bool) codec.Update {
	matched := false
	for i := 0; i+sceneMessageLength <= len(buf); i++ {
		var c, ctrl, bank, pc, program uint8
		if !midi.Message(buf[i:i+3]).GetControlChange(&c, &ctrl, &bank) {
			continue
		}
		if c != uint8(ch) || ctrl != ctrlBankSelect || !dataByte(bank) {
			continue
		}
		if !midi.Message(buf[i+3:i+5]).GetProgramChange(&pc, &program) || pc != uint8(ch) || !dataByte(program) {
			continue
		}
		s.current = SceneFromBankProgram(bank, program)
		matched = true
	}
	if !matched {
		return codec.NoUpdate()
	}
	return codec.Changed(s.Snapshot(), syncing)
}

// Snapshot returns {function: sceneRecall, currentScene: N}; currentScene is
// absent while unknown.
func (s *SceneRecall) Snapshot() codec.State {
	st := codec.NewState(FunctionSceneRecall)
	if s.current != 0 {
		st = st.Set("currentScene", s.current)
	}
	return st
}

// Reset forgets the current scene.
func (s *SceneRecall) Reset() {
	s.current = 0
}
