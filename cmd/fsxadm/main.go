// Command fsxadm is a diagnostic and maintenance tool for fsx600
// images: inspect metadata, list and extract files, build a fresh
// image, and walk the volume checking file link counts against the
// directory entries that reference them.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/fsx600/fsx600"
	"github.com/fsx600/fsx600/fsxfmt"
	"github.com/spf13/cobra"
	"golang.org/x/sys/unix"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fsxadm:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "fsxadm",
		Short:         "Inspect and maintain fsx600 volume images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newInfoCmd(), newLsCmd(), newCatCmd(), newFsckCmd(), newMkfsCmd(), newExtractCmd())
	return root
}

func openVolume(path string, writable bool) (*fsx600.Volume, *os.File, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, nil, err
	}
	vol, err := fsx600.Mount(fsx600.NewBlockDevice(f))
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return vol, f, nil
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Print volume geometry and occupancy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, f, err := openVolume(args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()

			sf := vol.Statfs()
			fmt.Printf("block size:    %d\n", sf.BlockSize)
			fmt.Printf("total blocks:  %d\n", sf.TotalBlocks)
			fmt.Printf("free blocks:   %d\n", sf.FreeBlocks)
			fmt.Printf("total inodes:  %d\n", sf.TotalInodes)
			fmt.Printf("free inodes:   %d\n", sf.FreeInodes)
			return nil
		},
	}
}

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <image> <path>",
		Short: "List a directory's entries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, f, err := openVolume(args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()

			entries, err := vol.ReadDir(args[1])
			if err != nil {
				return err
			}
			sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
			for _, e := range entries {
				kind := "f"
				if e.IsDir {
					kind = "d"
				}
				fmt.Printf("%s %8d %s\n", kind, e.Inode, e.Name)
			}
			return nil
		},
	}
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <image> <path>",
		Short: "Print a file's contents to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, f, err := openVolume(args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()
			return catFile(vol, args[1], os.Stdout)
		},
	}
}

func catFile(vol *fsx600.Volume, path string, w io.Writer) error {
	info, err := vol.Stat(path)
	if err != nil {
		return err
	}
	buf := make([]byte, 64*1024)
	var off int64
	for off < info.Size() {
		n, err := vol.ReadAt(path, buf, off)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
			off += int64(n)
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func newMkfsCmd() *cobra.Command {
	var blocks, inodes uint32
	cmd := &cobra.Command{
		Use:   "mkfs <image>",
		Short: "Create a fresh fsx600 image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.OpenFile(args[0], os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
			if err != nil {
				return err
			}
			defer f.Close()
			return fsxfmt.Create(f, blocks, inodes)
		},
	}
	cmd.Flags().Uint32Var(&blocks, "blocks", 4096, "total blocks on the new volume")
	cmd.Flags().Uint32Var(&inodes, "inodes", 1024, "total inodes on the new volume")
	return cmd
}

func newFsckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fsck <image>",
		Short: "Walk the volume and report consistency problems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, f, err := openVolume(args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()

			problems := fsckWalk(vol)
			for _, p := range problems {
				fmt.Println(p)
			}
			if len(problems) > 0 {
				return fmt.Errorf("%d problem(s) found", len(problems))
			}
			fmt.Println("clean")
			return nil
		},
	}
}

// fsckWalk recomputes each inode's expected link count from directory
// entries actually reachable from the root and reports every mismatch
// against the stored Nlink for non-directory inodes, plus any directory
// that cannot be listed. Directory link counts are not checked, and
// entries are not checked against the inode table's range or the inode
// bitmap.
func fsckWalk(vol *fsx600.Volume) []string {
	var problems []string
	linkCount := map[uint32]uint32{}

	var walk func(dirPath string, inum uint32)
	walk = func(dirPath string, inum uint32) {
		entries, err := vol.ReadDir(dirPath)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", dirPath, err))
			return
		}
		for _, e := range entries {
			linkCount[e.Inode]++
			if e.IsDir {
				walk(filepath.Join(dirPath, e.Name), e.Inode)
			}
		}
	}
	linkCount[fsx600.RootInode] = 2 // "." plus the conceptual parent-of-root link
	walk("/", fsx600.RootInode)

	for inum, want := range linkCount {
		info, err := vol.Lstat(inumToPath(vol, inum))
		if err != nil {
			continue
		}
		if info.IsDir() {
			continue // directory nlink also counts descendants' ".." entries, not tracked here
		}
		if uint32(info.Sys().(fsx600.Inode).Nlink) != want {
			problems = append(problems, fmt.Sprintf("inode %d: nlink %d, expected %d from directory entries", inum, info.Sys().(fsx600.Inode).Nlink, want))
		}
	}
	return problems
}

// inumToPath is a best-effort inverse lookup used only for fsck
// reporting; real resolution is always path-to-inode, never the
// reverse, so this simply re-walks from root.
func inumToPath(vol *fsx600.Volume, target uint32) string {
	var found string
	var walk func(dirPath string, inum uint32) bool
	walk = func(dirPath string, inum uint32) bool {
		entries, err := vol.ReadDir(dirPath)
		if err != nil {
			return false
		}
		for _, e := range entries {
			p := filepath.Join(dirPath, e.Name)
			if e.Inode == target {
				found = p
				return true
			}
			if e.IsDir && walk(p, e.Inode) {
				return true
			}
		}
		return false
	}
	if target == fsx600.RootInode {
		return "/"
	}
	walk("/", fsx600.RootInode)
	return found
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract <image> <src-path> <dest-path>",
		Short: "Extract a file or directory tree onto the host filesystem",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			vol, f, err := openVolume(args[0], false)
			if err != nil {
				return err
			}
			defer f.Close()
			return extract(vol, args[1], args[2])
		},
	}
}

func extract(vol *fsx600.Volume, src, dest string) error {
	info, err := vol.Lstat(src)
	if err != nil {
		return err
	}

	switch {
	case info.Mode()&os.ModeSymlink != 0:
		target, err := vol.Readlink(src)
		if err != nil {
			return err
		}
		return os.Symlink(target, dest)

	case info.IsDir():
		if err := os.MkdirAll(dest, info.Mode().Perm()); err != nil {
			return err
		}
		if err := unix.Chmod(dest, uint32(info.Mode().Perm())); err != nil {
			return err
		}
		entries, err := vol.ReadDir(src)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if err := extract(vol, filepath.Join(src, e.Name), filepath.Join(dest, e.Name)); err != nil {
				return err
			}
		}
		return nil

	default:
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
		if err != nil {
			return err
		}
		defer out.Close()
		if err := catFile(vol, src, out); err != nil {
			return err
		}
		return unix.Chmod(dest, uint32(info.Mode().Perm()))
	}
}
