// ABOUTME: Engine package documentation
// ABOUTME: Public entry point tying tracks, the listener and the output stream together
// Package engine is the public face of the mixer.
//
// A Manager opens an output stream, owns the main track and the scene
// listener, and hands out handles for everything it plays:
//
//	m, err := engine.New(engine.Config{})
//	if err != nil {
//		return err
//	}
//	defer m.Close()
//
//	data, err := sound.StaticFromFile("hit.wav", sound.Settings{})
//	if err != nil {
//		return err
//	}
//	h, err := m.Play(data)
//
// Handles are safe to use from any goroutine. The audio thread never blocks
// on them: commands travel through lock-free slots and are applied at the
// start of the next device buffer.
package engine
