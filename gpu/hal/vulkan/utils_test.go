package vulkan

import (
	"testing"

	vk "github.com/goki/vulkan"
)

func TestVulkanResultString(t *testing.T) {
	if got := VulkanResultString(vk.Success); got != "VK_SUCCESS" {
		t.Errorf("expected VK_SUCCESS. Got %s", got)
	}
	if got := VulkanResultString(vk.ErrorOutOfDate); got != "VK_ERROR_OUT_OF_DATE_KHR" {
		t.Errorf("expected VK_ERROR_OUT_OF_DATE_KHR. Got %s", got)
	}
	if got := VulkanResultString(vk.Result(-1000000000)); got != "VK_RESULT_UNRECOGNIZED" {
		t.Errorf("expected VK_RESULT_UNRECOGNIZED. Got %s", got)
	}
}

func TestVulkanResultIsSuccess(t *testing.T) {
	successes := []vk.Result{vk.Success, vk.NotReady, vk.Timeout, vk.Suboptimal}
	for _, res := range successes {
		if !VulkanResultIsSuccess(res) {
			t.Errorf("expected %s to count as success", VulkanResultString(res))
		}
	}
	failures := []vk.Result{vk.ErrorOutOfHostMemory, vk.ErrorDeviceLost, vk.ErrorOutOfDate, vk.ErrorUnknown}
	for _, res := range failures {
		if VulkanResultIsSuccess(res) {
			t.Errorf("expected %s to count as failure", VulkanResultString(res))
		}
	}
}

func TestVulkanSafeString(t *testing.T) {
	if got := VulkanSafeString(""); got != "\x00" {
		t.Errorf("empty string: expected a lone terminator. Got %q", got)
	}
	if got := VulkanSafeString("main"); got != "main\x00" {
		t.Errorf("expected terminator appended. Got %q", got)
	}
	if got := VulkanSafeString("main\x00"); got != "main\x00" {
		t.Errorf("already terminated string must not change. Got %q", got)
	}
}

func TestVulkanSafeStringsDoesNotMutateInput(t *testing.T) {
	in := []string{"VK_KHR_surface", "VK_KHR_swapchain"}
	out := VulkanSafeStrings(in)
	if in[0] != "VK_KHR_surface" {
		t.Errorf("input slice was mutated: %q", in[0])
	}
	if out[0] != "VK_KHR_surface\x00" || out[1] != "VK_KHR_swapchain\x00" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestFindFirstZeroInByteArray(t *testing.T) {
	if got := FindFirstZeroInByteArray([]byte{'a', 'b', 0, 'x'}); got != 2 {
		t.Errorf("expected 2. Got %d", got)
	}
	if got := FindFirstZeroInByteArray([]byte{'a', 'b'}); got != 2 {
		t.Errorf("no terminator: expected len. Got %d", got)
	}
	if got := FindFirstZeroInByteArray(nil); got != 0 {
		t.Errorf("empty input: expected 0. Got %d", got)
	}
}
